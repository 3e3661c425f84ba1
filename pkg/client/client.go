package client

import (
	"context"
	"meetproof/pkg/logger"
	"time"
)

type Client struct {
	Mongo  *MongoClient
	Payout *PayoutClient
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	c.Mongo = NewMongoClient(log, mongoURI, mongoConnTimeout)
}

func (c *Client) SetPayout(baseURL string) {
	c.Payout = NewPayoutClient(baseURL)
}

func (c *Client) GracefulShutdown() {
	if c.Mongo != nil {
		_ = c.Mongo.Client.Disconnect(context.Background())
	}
}
