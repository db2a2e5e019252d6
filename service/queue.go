package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"vote-ledger/logs"
	"vote-ledger/models"
)

var (
	ErrQueueFull    = errors.New("service: vote queue is full")
	ErrQueueStopped = errors.New("service: vote queue is stopped")
)

// QueueProcessor feeds votes to the ledger from a single worker goroutine, so
// submissions from many callers reach the ledger one at a time.
type QueueProcessor struct {
	votingService   *VotingService
	voteCh          chan *VoteRequest
	processingWg    sync.WaitGroup
	ctx             context.Context
	cancel          context.CancelFunc
	stopOnce        sync.Once
	mu              sync.RWMutex // guards stopped against sends on voteCh
	stopped         bool
	processingDelay time.Duration // For benchmarking purposes
}

// VoteRequest carries either a plain payload or an already encoded vote.
type VoteRequest struct {
	Ctx           context.Context
	VoterHash     string
	Vote          *models.VotePayload
	EncryptedVote string
	ResultCh      chan<- *ProcessingResult
}

// ProcessingResult contains the result of an asynchronous operation
type ProcessingResult struct {
	Success      bool            `json:"success"`
	Receipt      *models.Receipt `json:"receipt,omitempty"`
	ErrorMessage string          `json:"error,omitempty"`
	Err          error           `json:"-"`
}

func NewQueueProcessor(votingService *VotingService, queueSize int, processingDelay time.Duration) *QueueProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &QueueProcessor{
		votingService:   votingService,
		voteCh:          make(chan *VoteRequest, queueSize),
		ctx:             ctx,
		cancel:          cancel,
		processingDelay: processingDelay,
	}
}

func (qp *QueueProcessor) Start() {
	qp.processingWg.Add(1)
	go qp.voteWorker()
}

// Stop cancels any search in progress, waits for the worker, and fails every
// request still queued with ErrQueueStopped.
func (qp *QueueProcessor) Stop() {
	qp.stopOnce.Do(func() {
		qp.mu.Lock()
		qp.stopped = true
		qp.mu.Unlock()

		qp.cancel()
		qp.processingWg.Wait()
		close(qp.voteCh)
		for req := range qp.voteCh {
			respond(req, nil, ErrQueueStopped)
		}
	})
}

// QueueVote enqueues a vote and returns the channel its result arrives on. A
// full queue fails immediately instead of blocking.
func (qp *QueueProcessor) QueueVote(ctx context.Context, voterHash string, vote *models.VotePayload) <-chan *ProcessingResult {
	return qp.enqueue(&VoteRequest{Ctx: ctx, VoterHash: voterHash, Vote: vote})
}

func (qp *QueueProcessor) QueueEncryptedVote(ctx context.Context, voterHash, encryptedVote string) <-chan *ProcessingResult {
	return qp.enqueue(&VoteRequest{Ctx: ctx, VoterHash: voterHash, EncryptedVote: encryptedVote})
}

func (qp *QueueProcessor) enqueue(req *VoteRequest) <-chan *ProcessingResult {
	resultCh := make(chan *ProcessingResult, 1)
	req.ResultCh = resultCh
	if req.Ctx == nil {
		req.Ctx = context.Background()
	}

	qp.mu.RLock()
	defer qp.mu.RUnlock()
	if qp.stopped {
		respond(req, nil, ErrQueueStopped)
		return resultCh
	}

	select {
	case qp.voteCh <- req:
	default:
		logs.Warn("Vote queue is full, request rejected")
		respond(req, nil, ErrQueueFull)
	}
	return resultCh
}

// Submit enqueues a vote and waits for its receipt.
func (qp *QueueProcessor) Submit(ctx context.Context, voterHash string, vote *models.VotePayload) (*models.Receipt, error) {
	return wait(ctx, qp.QueueVote(ctx, voterHash, vote))
}

func (qp *QueueProcessor) SubmitEncrypted(ctx context.Context, voterHash, encryptedVote string) (*models.Receipt, error) {
	return wait(ctx, qp.QueueEncryptedVote(ctx, voterHash, encryptedVote))
}

func wait(ctx context.Context, ch <-chan *ProcessingResult) (*models.Receipt, error) {
	select {
	case res := <-ch:
		return res.Receipt, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func respond(req *VoteRequest, receipt *models.Receipt, err error) {
	res := &ProcessingResult{Success: err == nil, Receipt: receipt, Err: err}
	if err != nil {
		res.ErrorMessage = err.Error()
	}
	req.ResultCh <- res
	close(req.ResultCh)
}

func (qp *QueueProcessor) voteWorker() {
	defer qp.processingWg.Done()

	for {
		select {
		case <-qp.ctx.Done():
			return
		case req := <-qp.voteCh:
			qp.process(req)
		}
	}
}

func (qp *QueueProcessor) process(req *VoteRequest) {
	if err := req.Ctx.Err(); err != nil {
		respond(req, nil, err)
		return
	}
	if qp.processingDelay > 0 {
		time.Sleep(qp.processingDelay)
	}

	// Mining stops when either the caller gives up or the queue is stopped.
	ctx, cancel := context.WithCancel(req.Ctx)
	stop := context.AfterFunc(qp.ctx, cancel)
	defer func() {
		stop()
		cancel()
	}()

	var (
		receipt *models.Receipt
		err     error
	)
	if req.Vote != nil {
		receipt, err = qp.votingService.CastVote(ctx, req.VoterHash, req.Vote)
	} else {
		receipt, err = qp.votingService.SubmitEncryptedVote(ctx, req.VoterHash, req.EncryptedVote)
	}
	respond(req, receipt, err)
}
