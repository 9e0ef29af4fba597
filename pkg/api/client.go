package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a thin GrainStorage gRPC client, used by cmd/mgsctl to
// exercise a running mgsd out of process.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a running Server's gRPC listener.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Read(ctx context.Context, storage, tenant, entityID string) (*ReadResponse, error) {
	resp := new(ReadResponse)
	req := &ReadRequest{Storage: storage, Tenant: tenant, EntityID: entityID}
	if err := c.conn.Invoke(ctx, "/mgs.GrainStorage/Read", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Write(ctx context.Context, storage, tenant, entityID string, slot StateSlotMessage) (*WriteResponse, error) {
	resp := new(WriteResponse)
	req := &WriteRequest{Storage: storage, Tenant: tenant, EntityID: entityID, Slot: slot}
	if err := c.conn.Invoke(ctx, "/mgs.GrainStorage/Write", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Clear(ctx context.Context, storage, tenant, entityID string) error {
	resp := new(ClearResponse)
	req := &ClearRequest{Storage: storage, Tenant: tenant, EntityID: entityID}
	return c.conn.Invoke(ctx, "/mgs.GrainStorage/Clear", req, resp)
}
