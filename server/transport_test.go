package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// ---------------------------------------------------------------------------
// Connect over HTTP
// ---------------------------------------------------------------------------

func newConnectClient(t *testing.T) *EvaluationClient {
	t.Helper()
	mux := http.NewServeMux()
	path, handler := NewEvaluationServiceHandler(newTestEvalService())
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewEvaluationClient(srv.Client(), srv.URL)
}

func TestConnect_Evaluate(t *testing.T) {
	client := newConnectClient(t)

	resp, err := client.Evaluate(bg(), &EvaluateRequest{Source: `string s = "a"; print(s + "b");`})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !resp.Success || resp.Output != "ab\n" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestConnect_EmptySource(t *testing.T) {
	client := newConnectClient(t)

	_, err := client.Evaluate(bg(), &EvaluateRequest{})
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("err = %v, want InvalidArgument", err)
	}
	_, err = client.CheckSyntax(bg(), &CheckSyntaxRequest{})
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("CheckSyntax err = %v, want InvalidArgument", err)
	}
}

func TestConnect_CheckSyntaxAndDisassemble(t *testing.T) {
	client := newConnectClient(t)

	check, err := client.CheckSyntax(bg(), &CheckSyntaxRequest{Source: `if (1 < 2) { print(1); }`})
	if err != nil {
		t.Fatal(err)
	}
	if !check.Valid {
		t.Errorf("check = %+v", check)
	}

	dis, err := client.Disassemble(bg(), &DisassembleRequest{Source: `if (1 < 2) { print(1); }`})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dis.Listing, "JMP_NOT_IF") {
		t.Errorf("Listing:\n%s", dis.Listing)
	}
}

// ---------------------------------------------------------------------------
// gRPC over an in-memory listener
// ---------------------------------------------------------------------------

func newGRPCClient(t *testing.T) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(newTestEvalService())
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	client, err := DialGRPC("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatalf("DialGRPC: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGRPC_Evaluate(t *testing.T) {
	client := newGRPCClient(t)

	resp, err := client.Evaluate(bg(), &EvaluateRequest{Source: `float f = 1 / 4; print(f);`})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !resp.Success || resp.Output != "0.25\n" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.RunID == "" {
		t.Error("RunID is empty")
	}
}

func TestGRPC_Failures(t *testing.T) {
	client := newGRPCClient(t)

	_, err := client.Evaluate(bg(), &EvaluateRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("empty source: err = %v", err)
	}

	resp, err := client.Evaluate(bg(), &EvaluateRequest{Source: `print(q);`})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.ErrorKind != KindSemantic {
		t.Errorf("resp = %+v", resp)
	}

	check, err := client.CheckSyntax(bg(), &CheckSyntaxRequest{Source: `int = 3;`})
	if err != nil {
		t.Fatal(err)
	}
	if check.Valid || len(check.Diagnostics) != 1 || check.Diagnostics[0].Kind != KindSyntax {
		t.Errorf("check = %+v", check)
	}

	_, err = client.CheckSyntax(bg(), &CheckSyntaxRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("empty check: err = %v", err)
	}

	_, err = client.Disassemble(bg(), &DisassembleRequest{Source: `print(`})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("disassemble: err = %v", err)
	}
}

// ---------------------------------------------------------------------------
// SgmServer
// ---------------------------------------------------------------------------

func TestServer_ServeAndStop(t *testing.T) {
	s := New(WithWorkers(1))

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Serve(httpLis, grpcLis) }()

	client := NewEvaluationClient(http.DefaultClient, "http://"+httpLis.Addr().String())
	resp, err := client.Evaluate(bg(), &EvaluateRequest{Source: `print(true && false);`})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.Output != "false\n" {
		t.Errorf("Output = %q", resp.Output)
	}

	gc, err := DialGRPC(grpcLis.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer gc.Close()
	if _, err := gc.CheckSyntax(bg(), &CheckSyntaxRequest{Source: `print(1);`}); err != nil {
		t.Errorf("gRPC CheckSyntax: %v", err)
	}

	s.Stop()
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v", err)
	}
	s.Stop()
}

func TestServer_StopTwice(t *testing.T) {
	s := New(WithWorkers(1))
	s.Stop()
	s.Stop()
}

func TestVMWorker_StopTwice(t *testing.T) {
	w := NewVMWorker(1)
	w.Stop()
	w.Stop()
}
