package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentEventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"type",
			"value_cents",
			"processed_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			// the provider's data.id, not an ObjectID
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"unit_id": bson.M{
				"bsonType": "string",
			},

			"type": bson.M{
				"enum": []string{
					"PAYMENT_RECEIVED",
					"PAYMENT_OVERDUE",
					"SUBSCRIPTION_CANCELLED",
				},
			},

			"value_cents": bson.M{
				"bsonType": []string{"long", "int"},
			},

			"processed_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
