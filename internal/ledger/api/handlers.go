package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/trigg3rX/cipherwork/internal/ledger"
	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

// LedgerService is the part of the ledger the HTTP surface exposes
type LedgerService interface {
	CreateTask(ctx context.Context, req ledger.CreateTaskRequest) (types.Task, error)
	AssignTask(ctx context.Context, key string, worker string) (types.Task, error)
	SubmitResult(ctx context.Context, req ledger.SubmitResultRequest) (types.Task, error)
	RegisterWorker(ctx context.Context, identity string) (types.Worker, error)

	GetTask(key string) (types.Task, error)
	GetWorker(identity string) (types.Worker, error)
	GetHandle(h fhe.Handle) (types.HandleRecord, error)
	ListTaskKeys() []string
	ListWorkerIdentities() []string
	ListTasks() []types.Task
	ListWorkers() []types.Worker
}

var _ LedgerService = (*ledger.Ledger)(nil)

type Handler struct {
	ledger  LedgerService
	version string
}

func NewHandler(l LedgerService, version string) *Handler {
	return &Handler{ledger: l, version: version}
}

func (h *Handler) CreateTask(c *gin.Context) {
	logger := GetLogger(c)

	var req types.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warnf("[CreateTask] Invalid request body: %v", err)
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	ciphertext, err := hexutil.Decode(req.Ciphertext)
	if err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "ciphertext: "+err.Error())
		return
	}
	inputProof, err := hexutil.Decode(req.InputProof)
	if err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "input_proof: "+err.Error())
		return
	}

	task, err := h.ledger.CreateTask(c.Request.Context(), ledger.CreateTaskRequest{
		Key:          req.Key,
		Title:        req.Title,
		Ciphertext:   ciphertext,
		InputProof:   inputProof,
		RewardAmount: req.RewardAmount.Int,
		Deadline:     req.Deadline,
		Requester:    req.Requester,
	})
	if err != nil {
		logger.Infof("[CreateTask] Rejected task %s: %v", req.Key, err)
		respondError(c, err)
		return
	}

	logger.Infof("[CreateTask] Created task %s", task.Key)
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) ListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.ListTasks())
}

func (h *Handler) ListTaskKeys(c *gin.Context) {
	c.JSON(http.StatusOK, types.TaskKeysResponse{Keys: h.ledger.ListTaskKeys()})
}

func (h *Handler) GetTask(c *gin.Context) {
	task, err := h.ledger.GetTask(c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) AssignTask(c *gin.Context) {
	logger := GetLogger(c)
	key := c.Param("key")

	var req types.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	task, err := h.ledger.AssignTask(c.Request.Context(), key, req.Worker)
	if err != nil {
		logger.Infof("[AssignTask] Rejected assignment of %s to %s: %v", key, req.Worker, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) SubmitResult(c *gin.Context) {
	logger := GetLogger(c)
	key := c.Param("key")

	var req types.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	cleartexts, err := hexutil.Decode(req.Cleartexts)
	if err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "cleartexts: "+err.Error())
		return
	}
	proof, err := hexutil.Decode(req.Proof)
	if err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "proof: "+err.Error())
		return
	}

	task, err := h.ledger.SubmitResult(c.Request.Context(), ledger.SubmitResultRequest{
		Key:        key,
		Claimant:   req.Claimant,
		Cleartexts: cleartexts,
		Proof:      proof,
	})
	if err != nil {
		logger.Infof("[SubmitResult] Rejected result for %s from %s: %v", key, req.Claimant, err)
		respondError(c, err)
		return
	}

	logger.Infof("[SubmitResult] Task %s completed by %s", key, task.AssignedWorker)
	c.JSON(http.StatusOK, task)
}

func (h *Handler) RegisterWorker(c *gin.Context) {
	var req types.RegisterWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	worker, err := h.ledger.RegisterWorker(c.Request.Context(), req.Identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, worker)
}

// ListWorkers returns full records, or only identities with ?view=identities
func (h *Handler) ListWorkers(c *gin.Context) {
	if c.Query("view") == "identities" {
		c.JSON(http.StatusOK, types.WorkerIdentitiesResponse{Identities: h.ledger.ListWorkerIdentities()})
		return
	}
	c.JSON(http.StatusOK, h.ledger.ListWorkers())
}

func (h *Handler) GetWorker(c *gin.Context) {
	worker, err := h.ledger.GetWorker(c.Param("identity"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, worker)
}

func (h *Handler) GetHandle(c *gin.Context) {
	handle, err := fhe.ParseHandle(c.Param("handle"))
	if err != nil {
		respondBadRequest(c, "INVALID_HANDLE", err.Error())
		return
	}
	rec, err := h.ledger.GetHandle(handle)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthCheckResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "cipherwork-ledger",
		Version:   h.version,
	})
}
