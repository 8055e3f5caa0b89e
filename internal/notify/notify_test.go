package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type stubChannel struct {
	calls *int32
	err   error
}

func (s stubChannel) Send(ctx context.Context, msg Renderable) error {
	atomic.AddInt32(s.calls, 1)
	return s.err
}

func TestFanout_ProdInvokesAllThreeChannels(t *testing.T) {
	var chatCalls, teamCalls, emailCalls int32
	f := &Fanout{
		Mode:     ModeProd,
		Chat:     stubChannel{calls: &chatCalls},
		TeamChat: stubChannel{calls: &teamCalls},
		Email:    stubChannel{calls: &emailCalls},
	}

	if err := f.Send(context.Background(), NodeFault{ClusterName: "demo", Hosts: []string{"h1"}}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if chatCalls != 1 || teamCalls != 1 || emailCalls != 1 {
		t.Errorf("calls = chat:%d team:%d email:%d, want 1/1/1", chatCalls, teamCalls, emailCalls)
	}
}

func TestFanout_DevInvokesEmailOnly(t *testing.T) {
	var chatCalls, teamCalls, emailCalls int32
	f := &Fanout{
		Mode:     ModeDev,
		Chat:     stubChannel{calls: &chatCalls},
		TeamChat: stubChannel{calls: &teamCalls},
		Email:    stubChannel{calls: &emailCalls},
	}

	if err := f.Send(context.Background(), NodeFault{ClusterName: "demo"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if chatCalls != 0 || teamCalls != 0 || emailCalls != 1 {
		t.Errorf("calls = chat:%d team:%d email:%d, want 0/0/1", chatCalls, teamCalls, emailCalls)
	}
}

func TestFanout_ProdSurfacesFirstError(t *testing.T) {
	var chatCalls, teamCalls, emailCalls int32
	wantErr := errors.New("chat delivery failed")
	f := &Fanout{
		Mode:     ModeProd,
		Chat:     stubChannel{calls: &chatCalls, err: wantErr},
		TeamChat: stubChannel{calls: &teamCalls},
		Email:    stubChannel{calls: &emailCalls},
	}

	err := f.Send(context.Background(), NodeFault{ClusterName: "demo"})
	if err == nil {
		t.Fatal("Send() error = nil, want the chat channel's error surfaced")
	}
}

func TestNodeFault_ChatText(t *testing.T) {
	m := NodeFault{ClusterName: "demo", Hosts: []string{"h1", "h2"}}
	want := "[demo] Node connection failure: h1, h2"
	if got := m.ChatText(); got != want {
		t.Errorf("ChatText() = %q, want %q", got, want)
	}
}
