package validators

import "go.mongodb.org/mongo-driver/bson"

// BookingValidator enforces the tagged payload: room bookings carry a stay,
// experience bookings a visit. An empty listing id marks an orphan.
var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"kind",
			"user_id",
			"guests",
			"not_canceled",
			"created_at",
			"updated_at",
		},
		"additionalProperties": false,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"kind": bson.M{
				"bsonType": "string",
				"enum":     []string{"rooms", "experiences"},
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"stay": bson.M{
				"bsonType":             "object",
				"required":             []string{"room_id", "check_in", "check_out"},
				"additionalProperties": false,
				"properties": bson.M{
					"room_id": bson.M{
						"bsonType":  "string",
						"maxLength": 64,
					},
					"check_in": bson.M{
						"bsonType": "date",
					},
					"check_out": bson.M{
						"bsonType": "date",
					},
				},
			},

			"visit": bson.M{
				"bsonType":             "object",
				"required":             []string{"experience_id", "experience_time"},
				"additionalProperties": false,
				"properties": bson.M{
					"experience_id": bson.M{
						"bsonType":  "string",
						"maxLength": 64,
					},
					"experience_time": bson.M{
						"bsonType": "date",
					},
				},
			},

			"guests": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"not_canceled": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},

		"oneOf": []bson.M{
			{
				"properties": bson.M{"kind": bson.M{"enum": []string{"rooms"}}},
				"required":   []string{"stay"},
				"not":        bson.M{"required": []string{"visit"}},
			},
			{
				"properties": bson.M{"kind": bson.M{"enum": []string{"experiences"}}},
				"required":   []string{"visit"},
				"not":        bson.M{"required": []string{"stay"}},
			},
		},
	},
}

// BookingLockValidator covers the per-room guard documents.
var BookingLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "version"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
				"pattern":  "^room:",
			},
			"version": bson.M{
				"bsonType": []string{"int", "long"},
			},
			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
