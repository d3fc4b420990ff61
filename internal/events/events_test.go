package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestRoutingKey(t *testing.T) {
	tests := map[string]string{
		"open":          "job.status.open",
		"pending-offer": "job.status.pending-offer",
		"in-progress":   "job.status.in-progress",
		"completed":     "job.status.completed",
	}
	for to, want := range tests {
		if got := (JobStatusEvent{To: to}).RoutingKey(); got != want {
			t.Errorf("RoutingKey(%s) = %s, want %s", to, got, want)
		}
	}
}

func TestJobStatusEventJSON(t *testing.T) {
	e := JobStatusEvent{JobID: "j-1", Reference: "JOB-ABC", CustomerID: "c-1", From: "open", To: "pending-offer", ActorID: "w-1", OccurredAt: time.Unix(0, 0).UTC()}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if _, ok := m["worker_id"]; ok {
		t.Error("empty worker_id should be omitted")
	}
	if m["to"] != "pending-offer" || m["reference"] != "JOB-ABC" {
		t.Errorf("json = %s", b)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.PublishJobStatus(context.Background(), JobStatusEvent{}); err != nil {
		t.Fatal(err)
	}
}
