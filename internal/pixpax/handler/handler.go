// Package handler exposes the pixpax service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pixpax/internal/pixpax/ledger"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/verify"
	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/httputil"
	"pixpax/pkg/platform/middleware/admin"
	"pixpax/pkg/platform/middleware/request"
	"pixpax/pkg/requestcontext"
	"pixpax/pkg/validation"
)

// Service is the pixpax surface the handler drives.
type Service interface {
	IssuePack(ctx context.Context, req models.IssueRequest) (*models.PackResult, error)
	MintRedeemCode(ctx context.Context, req models.MintRequest) (*models.MintResult, error)
	RedeemToken(ctx context.Context, req models.RedeemRequest) (*models.RedeemResult, error)
	RevokeCode(ctx context.Context, codeID, reason string) (*models.RedeemCode, error)
	VerifyPack(ctx context.Context, ref verify.Ref) (models.VerificationResult, error)
	PackProof(ctx context.Context, collectionID, version, packID string, index int) (*models.PackProof, error)
	ReceiptProof(ctx context.Context, segmentKey, packID string) (ledger.ReceiptProof, error)
	SeedCollection(ctx context.Context, req models.SeedRequest) (*models.SeedResult, error)
	RetireSeries(ctx context.Context, collectionID, version, seriesID, reason string) (*models.RetireResult, error)
}

// Handler serves the /v1/pixpax routes.
type Handler struct {
	svc        Service
	adminToken string
	logger     *slog.Logger
}

func New(svc Service, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, adminToken: adminToken, logger: logger}
}

// Register mounts the routes. Override issuance is allowed on the public
// route for callers presenting the admin token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/pixpax", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(request.BodyLimit(validation.MaxBodySize))
			r.With(admin.Optional(h.adminToken)).Post("/collections/{collectionId}/{version}/packs", h.handleIssuePack)
			r.Get("/collections/{collectionId}/{version}/packs/{packId}/proof/{index}", h.handlePackProof)
			r.Post("/redeem", h.handleRedeem)
			r.Post("/packs/verify", h.handleVerifyPack)
			r.Get("/ledger/proof", h.handleReceiptProof)

			r.Group(func(r chi.Router) {
				r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
				r.Post("/collections/{collectionId}/{version}/codes", h.handleMintCode)
				r.Post("/codes/{codeId}/revoke", h.handleRevokeCode)
				r.Post("/collections/{collectionId}/{version}/series/{seriesId}/retire", h.handleRetireSeries)
			})
		})

		// Seeding carries whole catalogs.
		r.With(request.BodyLimit(validation.MaxSeedBodySize), admin.RequireAdminToken(h.adminToken, h.logger)).
			Post("/collections", h.handleSeedCollection)
	})
}

func (h *Handler) handleIssuePack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Bind[issuePackRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.svc.IssuePack(ctx, models.IssueRequest{
		CollectionID: chi.URLParam(r, "collectionId"),
		Version:      chi.URLParam(r, "version"),
		UserKey:      req.UserKey,
		DropID:       req.DropID,
		Count:        req.Count,
		Override:     req.Override,
		DevUntracked: req.DevUntracked,
		IsAdmin:      admin.IsAdminRequest(ctx),
	})
	if err != nil {
		h.writeServiceError(ctx, w, "issue pack", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMintCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.Bind[mintCodeRequest](w, r, h.logger)
	if !ok {
		return
	}

	minted, err := h.svc.MintRedeemCode(ctx, req.toModel(chi.URLParam(r, "collectionId"), chi.URLParam(r, "version")))
	if err != nil {
		h.writeServiceError(ctx, w, "mint redeem code", err)
		return
	}
	h.logger.InfoContext(ctx, "redeem code minted",
		"request_id", requestID,
		"code_id", minted.CodeID,
		"admin_actor", admin.GetAdminActorID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, minted)
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.Bind[redeemRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.svc.RedeemToken(ctx, models.RedeemRequest{
		Token:           req.Token,
		CollectorPubKey: req.CollectorPubKey,
		CollectorSig:    req.CollectorSig,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "redeem token", err)
		return
	}
	switch {
	case result.Pack != nil:
		httputil.WriteJSON(w, http.StatusOK, result.Pack)
	case result.Conflict != nil:
		httputil.WriteJSON(w, http.StatusConflict, result.Conflict)
	default:
		h.logger.InfoContext(ctx, "redemption rejected",
			"request_id", requestID,
			"reason", result.Reason,
		)
		httputil.WriteJSON(w, http.StatusBadRequest, redeemFailure{Reason: result.Reason})
	}
}

func (h *Handler) handleRevokeCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.bindReason(w, r)
	if !ok {
		return
	}

	code, err := h.svc.RevokeCode(ctx, chi.URLParam(r, "codeId"), req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "revoke redeem code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, code)
}

func (h *Handler) handleVerifyPack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref, ok := httputil.Decode[verify.Ref](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.svc.VerifyPack(ctx, *ref)
	if err != nil {
		h.writeServiceError(ctx, w, "verify pack", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePackProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "index must be an integer"))
		return
	}

	proof, err := h.svc.PackProof(ctx, chi.URLParam(r, "collectionId"), chi.URLParam(r, "version"), chi.URLParam(r, "packId"), index)
	if err != nil {
		h.writeServiceError(ctx, w, "build pack proof", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proof)
}

func (h *Handler) handleReceiptProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	proof, err := h.svc.ReceiptProof(ctx, q.Get("segmentKey"), q.Get("packId"))
	if err != nil {
		h.writeServiceError(ctx, w, "prove receipt", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proof)
}

func (h *Handler) handleSeedCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Bind[seedRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.svc.SeedCollection(ctx, models.SeedRequest(*req))
	if err != nil {
		h.writeServiceError(ctx, w, "seed collection", err)
		return
	}
	status := http.StatusOK
	if result.CollectionCreated {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, result)
}

func (h *Handler) handleRetireSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.bindReason(w, r)
	if !ok {
		return
	}

	result, err := h.svc.RetireSeries(ctx, chi.URLParam(r, "collectionId"), chi.URLParam(r, "version"), chi.URLParam(r, "seriesId"), req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "retire series", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// writeServiceError logs infrastructure failures at Error and rejections at
// Info before writing the mapped response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"reason", dErrors.ReasonOf(err),
		"error", err,
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, "failed to "+op, attrs...)
	} else {
		h.logger.InfoContext(ctx, op+" rejected", attrs...)
	}
	if dErrors.HasCode(err, dErrors.CodeConflict) && dErrors.ReasonOf(err) == models.StatusAlreadyClaimed {
		httputil.WriteJSON(w, http.StatusConflict, map[string]string{
			"status": models.StatusAlreadyClaimed,
			"error":  err.Error(),
		})
		return
	}
	httputil.WriteError(w, err)
}

// bindReason accepts an absent body; the reason is optional.
func (h *Handler) bindReason(w http.ResponseWriter, r *http.Request) (*reasonRequest, bool) {
	if r.ContentLength == 0 {
		return &reasonRequest{}, true
	}
	return httputil.Bind[reasonRequest](w, r, h.logger)
}
