package peer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/envelope"
)

func nodeForServer(t *testing.T, srv *httptest.Server) config.AuthorityNode {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return config.AuthorityNode{Hostname: u.Hostname(), Port: port}
}

func TestPostJSONRoundTripOverTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("server decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(envelope.Envelope{Data: json.RawMessage(`{"ok":true}`), Signature: "sig"})
	}))
	defer srv.Close()

	node := nodeForServer(t, srv)
	c := New(2 * time.Second)
	c.http = srv.Client()

	reply, err := c.PostJSON(context.Background(), node, "/ping", map[string]string{})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if reply.Signature != "sig" {
		t.Fatalf("reply.Signature = %q, want %q", reply.Signature, "sig")
	}
}

func TestPostOverTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in envelope.Envelope
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("server decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(envelope.Envelope{Data: in.Data, Signature: "relayed"})
	}))
	defer srv.Close()

	node := nodeForServer(t, srv)
	c := New(2 * time.Second)
	c.http = srv.Client()

	sent := &envelope.Envelope{Data: json.RawMessage(`{"mintAddress":"0xabc"}`), Signature: "original"}
	reply, err := c.Post(context.Background(), node, "/generateDepositAddress", sent)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if reply.Signature != "relayed" {
		t.Fatalf("reply.Signature = %q, want %q", reply.Signature, "relayed")
	}
	if string(reply.Data) != string(sent.Data) {
		t.Fatalf("reply.Data = %s, want echoed %s", reply.Data, sent.Data)
	}
}

func TestPostNonOKStatusIsConsensusError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	node := nodeForServer(t, srv)
	c := New(2 * time.Second)
	c.http = srv.Client()

	_, err := c.Post(context.Background(), node, "/ping", &envelope.Envelope{Data: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatalf("expected error for non-200 response")
	}
	if got := config.ErrorCode(err); got != config.ErrorConsensus {
		t.Fatalf("error code = %s, want %s", got, config.ErrorConsensus)
	}
}
