package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/chazu/sgm/compiler"
	"github.com/chazu/sgm/store"
	"github.com/chazu/sgm/vm"
)

const (
	// EvaluationServiceName is the fully-qualified name of the service.
	EvaluationServiceName = "sgm.v1.EvaluationService"

	EvaluateProcedure    = "/sgm.v1.EvaluationService/Evaluate"
	CheckSyntaxProcedure = "/sgm.v1.EvaluationService/CheckSyntax"
	DisassembleProcedure = "/sgm.v1.EvaluationService/Disassemble"
)

// Error kinds reported in EvaluateResponse.ErrorKind and Diagnostic.Kind.
const (
	KindSyntax      = "syntax"
	KindSemantic    = "semantic"
	KindRuntime     = "runtime"
	KindInterrupted = "interrupted"
	KindInternal    = "internal"
)

var (
	errSourceRequired = errors.New("source is required")
	errWorkerStopped  = errors.New("server is shutting down")
)

// EvaluationServer is the transport-neutral form of the service. Connect
// and gRPC both dispatch to it.
type EvaluationServer interface {
	EvaluateSource(context.Context, *EvaluateRequest) (*EvaluateResponse, error)
	CheckSource(context.Context, *CheckSyntaxRequest) (*CheckSyntaxResponse, error)
	DisassembleSource(context.Context, *DisassembleRequest) (*DisassembleResponse, error)
}

// EvalService compiles and runs sgm programs on behalf of remote callers.
// Every evaluation runs in a fresh interpreter state; nothing survives
// between requests except the optional compile cache.
type EvalService struct {
	worker  *VMWorker
	cache   *store.ContentStore
	timeout time.Duration
}

// NewEvalService creates an EvalService. cache may be nil and a zero
// timeout means runs are bounded only by the caller's context.
func NewEvalService(worker *VMWorker, cache *store.ContentStore, timeout time.Duration) *EvalService {
	return &EvalService{
		worker:  worker,
		cache:   cache,
		timeout: timeout,
	}
}

// ---------------------------------------------------------------------------
// Transport-neutral operations
// ---------------------------------------------------------------------------

// EvaluateSource compiles and executes req.Source. Compile and runtime
// failures are reported in the response; only a missing source is an error.
func (s *EvalService) EvaluateSource(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	if req.Source == "" {
		return nil, errSourceRequired
	}
	resp := &EvaluateResponse{RunID: uuid.NewString()}

	prog, cached, err := s.compile(ctx, req.Source)
	if err != nil {
		log.Infof("run %s: compile failed: %s", resp.RunID, err)
		resp.ErrorKind = errorKind(err)
		resp.ErrorMessage = err.Error()
		return resp, nil
	}
	resp.Cached = cached

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res := s.worker.Do(ctx, prog, req.Trace)
	resp.Output = res.output
	resp.Steps = res.steps
	if res.err != nil {
		log.Infof("run %s: %s", resp.RunID, res.err)
		resp.ErrorKind = errorKind(res.err)
		resp.ErrorMessage = res.err.Error()
		return resp, nil
	}
	resp.Success = true
	log.Debugf("run %s: %d instructions, %d steps", resp.RunID, len(prog), res.steps)
	return resp, nil
}

// CheckSource runs the front end over req.Source and reports what it found.
func (s *EvalService) CheckSource(ctx context.Context, req *CheckSyntaxRequest) (*CheckSyntaxResponse, error) {
	if req.Source == "" {
		return nil, errSourceRequired
	}
	a := compiler.Analyze(req.Source)
	resp := &CheckSyntaxResponse{
		Valid:        a.Err == nil,
		Variables:    a.Variables,
		Instructions: len(a.Program),
	}
	if a.Err != nil {
		resp.Diagnostics = []Diagnostic{{Kind: errorKind(a.Err), Message: a.Err.Error()}}
	}
	return resp, nil
}

// DisassembleSource compiles req.Source and returns its listing.
func (s *EvalService) DisassembleSource(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error) {
	if req.Source == "" {
		return nil, errSourceRequired
	}
	prog, _, err := s.compile(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	name := req.Name
	if name == "" {
		name = "program"
	}
	return &DisassembleResponse{
		Listing:      prog.DisassembleWithName(name),
		Instructions: len(prog),
	}, nil
}

func (s *EvalService) compile(ctx context.Context, source string) (vm.Program, bool, error) {
	if s.cache != nil {
		return s.cache.CompileCached(ctx, source)
	}
	prog, err := compiler.Compile(source)
	return prog, false, err
}

// errorKind classifies err for clients.
func errorKind(err error) string {
	switch {
	case compiler.IsSyntaxError(err):
		return KindSyntax
	case compiler.IsSemanticError(err):
		return KindSemantic
	case vm.IsRuntimeError(err):
		return KindRuntime
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindInterrupted
	}
	return KindInternal
}

// ---------------------------------------------------------------------------
// Connect handlers
// ---------------------------------------------------------------------------

// Evaluate compiles and executes an sgm program.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[EvaluateRequest],
) (*connect.Response[EvaluateResponse], error) {
	resp, err := s.EvaluateSource(ctx, req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(resp), nil
}

// CheckSyntax reports front-end diagnostics without running anything.
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[CheckSyntaxRequest],
) (*connect.Response[CheckSyntaxResponse], error) {
	resp, err := s.CheckSource(ctx, req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(resp), nil
}

// Disassemble returns the bytecode listing of a program.
func (s *EvalService) Disassemble(
	ctx context.Context,
	req *connect.Request[DisassembleRequest],
) (*connect.Response[DisassembleResponse], error) {
	resp, err := s.DisassembleSource(ctx, req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(resp), nil
}

// NewEvaluationServiceHandler builds the Connect handler for svc. The
// returned path is the mount point for the handler.
func NewEvaluationServiceHandler(svc *EvalService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(cborCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, svc.Evaluate, opts...))
	mux.Handle(CheckSyntaxProcedure, connect.NewUnaryHandler(CheckSyntaxProcedure, svc.CheckSyntax, opts...))
	mux.Handle(DisassembleProcedure, connect.NewUnaryHandler(DisassembleProcedure, svc.Disassemble, opts...))
	return "/" + EvaluationServiceName + "/", mux
}

// ---------------------------------------------------------------------------
// Connect client
// ---------------------------------------------------------------------------

// EvaluationClient calls the service over Connect.
type EvaluationClient struct {
	evaluate    *connect.Client[EvaluateRequest, EvaluateResponse]
	checkSyntax *connect.Client[CheckSyntaxRequest, CheckSyntaxResponse]
	disassemble *connect.Client[DisassembleRequest, DisassembleResponse]
}

// NewEvaluationClient creates a client for the service at baseURL, for
// example "http://localhost:4567".
func NewEvaluationClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *EvaluationClient {
	opts = append([]connect.ClientOption{connect.WithCodec(cborCodec{})}, opts...)
	return &EvaluationClient{
		evaluate:    connect.NewClient[EvaluateRequest, EvaluateResponse](httpClient, baseURL+EvaluateProcedure, opts...),
		checkSyntax: connect.NewClient[CheckSyntaxRequest, CheckSyntaxResponse](httpClient, baseURL+CheckSyntaxProcedure, opts...),
		disassemble: connect.NewClient[DisassembleRequest, DisassembleResponse](httpClient, baseURL+DisassembleProcedure, opts...),
	}
}

func (c *EvaluationClient) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	resp, err := c.evaluate.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *EvaluationClient) CheckSyntax(ctx context.Context, req *CheckSyntaxRequest) (*CheckSyntaxResponse, error) {
	resp, err := c.checkSyntax.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *EvaluationClient) Disassemble(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error) {
	resp, err := c.disassemble.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
