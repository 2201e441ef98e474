package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"unit_id",
			"professional_id",
			"client_id",
			"service_ids",
			"start",
			"end",
			"status",
			"origin",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"unit_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"professional_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"client_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"service_ids": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"start": bson.M{
				"bsonType": "date",
			},

			"end": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"enum": []string{
					"requested",
					"scheduled",
					"confirmed",
					"in_progress",
					"completed",
					"cancelled",
					"rescheduled",
				},
			},

			"origin": bson.M{
				"enum": []string{"direct", "marketplace"},
			},

			"origin_unit_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"price_cents": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"commission_percentage": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
				"maximum":  100,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
