package inbound

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/statsig-io/ruid/internal/pkg/pkgerror"
	"github.com/statsig-io/ruid/internal/pkg/pkgrouter"
)

type HTTPEndpoint struct {
	uc         uc
	errorCodec func(ctx context.Context, w http.ResponseWriter, err error)
}

// Next writes one id as a bare decimal string.
func (h *HTTPEndpoint) Next(w http.ResponseWriter, r *http.Request) {
	id, err := h.uc.Generate(r.Context())
	if err != nil {
		h.errorCodec(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(strconv.FormatUint(id, 10))); err != nil {
		slog.ErrorContext(r.Context(), "failed to write id", "error", err)
	}
}

func (h *HTTPEndpoint) IDs(ctx context.Context, r *http.Request) (any, error) {
	count, err := parseCount(r.URL.Query().Get("count"))
	if err != nil {
		return nil, err
	}

	ids, err := h.uc.GenerateBatch(ctx, count)
	if err != nil {
		return nil, err
	}

	resp := IDsResponse{IDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		resp.IDs = append(resp.IDs, strconv.FormatUint(id, 10))
	}

	return resp, nil
}

func (h *HTTPEndpoint) Decode(ctx context.Context, r *http.Request) (any, error) {
	result, err := h.uc.Decode(ctx, pkgrouter.GetParam(ctx, "id"))
	if err != nil {
		return nil, err
	}

	return DecodeResponse{
		ID:        strconv.FormatUint(result.ID, 10),
		Timestamp: result.Fields.Timestamp,
		UnixMs:    result.Time.UnixMilli(),
		Time:      result.Time.Format(time.RFC3339Nano),
		Sequence:  result.Fields.Sequence,
		ClusterID: result.Fields.ClusterID,
		NodeID:    result.Fields.NodeID,
		Valid:     result.Valid,
		Reason:    result.Reason,
	}, nil
}

func (h *HTTPEndpoint) Layout(ctx context.Context, _ *http.Request) (any, error) {
	info := h.uc.Info(ctx)
	l := info.Layout

	return LayoutResponse{
		TimestampBits:   l.TimestampBits,
		SequenceBits:    l.SequenceBits,
		ClusterBits:     l.ClusterBits,
		NodeBits:        l.NodeBits,
		MaxTimestamp:    l.MaxTimestamp,
		MaxSequence:     l.MaxSequence,
		MaxCluster:      l.MaxCluster,
		MaxNode:         l.MaxNode,
		TimestampShift:  l.TimestampShift,
		SequenceShift:   l.SequenceShift,
		ClusterShift:    l.ClusterShift,
		EpochMs:         info.Epoch.UnixMilli(),
		Epoch:           info.Epoch.Format(time.RFC3339),
		SkewToleranceMs: info.SkewToleranceMs,
		ClusterID:       info.Identity.ClusterID,
		NodeID:          info.Identity.NodeID,
		Suffix:          uint64(info.Suffix),
		BatchMax:        info.BatchMax,
	}, nil
}

func (h *HTTPEndpoint) Stats(ctx context.Context, _ *http.Request) (any, error) {
	stats := h.uc.Stats(ctx)

	counts := make(map[string]uint64, len(stats.Counts))
	for outcome, n := range stats.Counts {
		counts[string(outcome)] = n
	}

	return StatsResponse{
		Counts:        counts,
		LastError:     stats.LastError,
		LastTimestamp: stats.LastTimestamp,
		LastSequence:  stats.LastSequence,
		Halted:        stats.Halted,
		HaltReason:    stats.HaltReason,
	}, nil
}

func parseCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerror.NewInvalidInput(errors.New("invalid count"))
	}

	return count, nil
}
