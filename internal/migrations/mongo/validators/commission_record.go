package validators

import "go.mongodb.org/mongo-driver/bson"

var CommissionRecordValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reservation_id",
			"unit_id",
			"value_cents",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"reservation_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"unit_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"value_cents": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
