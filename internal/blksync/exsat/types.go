package exsat

import (
	"context"
	"encoding/json"
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		ObserveRequest(endpoint, operation string, err error, started time.Time)
		ObserveBreaker(endpoint string, open bool)
	}
	// Gateway is the raw transport to the destination chain.
	Gateway interface {
		GetTableRows(ctx context.Context, q TableQuery) ([]json.RawMessage, error)
		PushAction(ctx context.Context, action Action) (*ActionResult, error)
	}
)
