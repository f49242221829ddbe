package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	audithandler "projectbeheer/backend/internal/audit/handler"
	"projectbeheer/backend/internal/server/rpc"
	userdomain "projectbeheer/backend/internal/user/domain"
)

// client calls HistoryService with a bearer token.
type client struct {
	conn  grpc.ClientConnInterface
	token string
}

func dial(g *globalFlags) (*client, func(), error) {
	token := g.token
	if g.as != "" {
		minted, err := mintToken(g.as, string(userdomain.RoleProjectLead), "")
		if err != nil {
			return nil, nil, err
		}
		token = minted
	}
	if token == "" {
		return nil, nil, errors.New("no token: pass --token, set HISTORYCTL_TOKEN or use --as")
	}
	conn, err := grpc.NewClient(g.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dial %s", g.addr)
	}
	return &client{conn: conn, token: token}, func() { _ = conn.Close() }, nil
}

func (c *client) call(ctx context.Context, method string, in, out any) error {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	return rpc.Invoke(ctx, c.conn, audithandler.ServiceName, method, in, out)
}
