package inbound

import (
	"context"
	"net/http"

	"github.com/statsig-io/ruid/internal/pkg/pkgrouter"
	"github.com/statsig-io/ruid/internal/ruid/usecase"
)

type uc interface {
	Generate(ctx context.Context) (uint64, error)
	GenerateBatch(ctx context.Context, count int) ([]uint64, error)
	Decode(ctx context.Context, raw string) (usecase.DecodeResult, error)
	Info(ctx context.Context) usecase.InfoResult
	Stats(ctx context.Context) usecase.StatsResult
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc, errorCodec: r.WriteError}

	r.Handle(http.MethodGet, "/", http.HandlerFunc(end.Next)) // text/plain

	r.GET("/ids", end.IDs) // ?count=
	r.GET("/ids/:id", end.Decode)
	r.GET("/layout", end.Layout)
	r.GET("/stats", end.Stats)
}
