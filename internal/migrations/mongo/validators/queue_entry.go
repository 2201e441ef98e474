package validators

import "go.mongodb.org/mongo-driver/bson"

var QueueEntryValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"unit_id",
			"client_id",
			"service_ids",
			"enqueued_at",
			"position",
			"status",
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

			"enqueued_at": bson.M{
				"bsonType": "date",
			},

			"position": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"status": bson.M{
				"enum": []string{"waiting", "called", "in_service", "done", "removed"},
			},

			"duration_minutes": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},
		},
	},
}
