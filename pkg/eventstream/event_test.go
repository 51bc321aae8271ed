package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/modelgate/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals ChatCompletedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.ChatCompletedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeChatCompleted,
			EventID:       "evt_123",
			EmittedAt:     now,
			RequestID:     "req_456",
			Identity:      "user-1",
			Model:         "llama3",
			Streaming:     true,
			ChunkCount:    12,
			DurationMs:    2000,
			Outcome:       "completed",
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("request_id"))
		Expect(got).To(HaveKey("identity"))
		Expect(got).To(HaveKey("model"))
		Expect(got).To(HaveKey("streaming"))
		Expect(got).To(HaveKey("chunk_count"))
		Expect(got).To(HaveKey("duration_ms"))
		Expect(got).To(HaveKey("outcome"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeChatCompleted).To(Equal("modelgate.chat.completed"))
	})

	It("provides ErrNilChatEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilChatEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilChatEvent).To(MatchError("nil chat event"))
	})
})
