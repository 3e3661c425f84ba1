package validators

import "go.mongodb.org/mongo-driver/bson"

var VerificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"requester_code",
			"provider_code",
			"verification_status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"requester_code": bson.M{
				"bsonType": "string",
			},

			"provider_code": bson.M{
				"bsonType": "string",
			},

			"requester_entered": bson.M{
				"bsonType": "bool",
			},

			"provider_entered": bson.M{
				"bsonType": "bool",
			},

			"requester_attempts": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  3,
			},

			"provider_attempts": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  3,
			},

			"requester_lat": bson.M{
				"bsonType": "double",
				"minimum":  -90,
				"maximum":  90,
			},

			"requester_lng": bson.M{
				"bsonType": "double",
				"minimum":  -180,
				"maximum":  180,
			},

			"provider_lat": bson.M{
				"bsonType": "double",
				"minimum":  -90,
				"maximum":  90,
			},

			"provider_lng": bson.M{
				"bsonType": "double",
				"minimum":  -180,
				"maximum":  180,
			},

			"verification_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"verified",
					"failed",
				},
			},

			"location_verified": bson.M{
				"bsonType": "bool",
			},

			"verified_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
