package validators

import "go.mongodb.org/mongo-driver/bson"

var UnitValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"active",
			"business_hours",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"business_hours": bson.M{
				"bsonType": "object",
			},

			"marketplace_active": bson.M{
				"bsonType": "bool",
			},

			"allow_cross_unit": bson.M{
				"bsonType": "bool",
			},

			"commission_percentage": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
				"maximum":  100,
			},

			"archived_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
