package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"requester_id",
			"provider_id",
			"scheduled_date",
			"start_time",
			"end_time",
			"meeting_address",
			"total_amount",
			"platform_fee",
			"currency",
			"status",
			"payment_status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"requester_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"provider_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"scheduled_date": bson.M{
				"bsonType": "date",
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"meeting_address": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 300,
			},

			"meeting_lat": bson.M{
				"bsonType": "double",
				"minimum":  -90,
				"maximum":  90,
			},

			"meeting_lng": bson.M{
				"bsonType": "double",
				"minimum":  -180,
				"maximum":  180,
			},

			"total_amount": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"platform_fee": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"payment_held",
					"meeting_started",
					"completed",
					"cancelled",
					"no_show",
				},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"unauthorized",
					"authorized",
					"captured",
					"refunded",
					"transfer_pending",
					"transfer_completed",
					"transfer_failed",
				},
			},

			"admin_resolved": bson.M{
				"bsonType": "bool",
			},

			"admin_resolution_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"refunded",
					"paid_provider",
					"no_action",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
