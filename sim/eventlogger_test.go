package sim

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
)

var _ = Describe("EventLogger", func() {
	var (
		buf *bytes.Buffer
		s   *Scheduler
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		s = NewScheduler()
	})

	It("should log fired events", func() {
		s.AcceptHook(NewEventLogger(zerolog.New(buf)))

		_, _ = s.ScheduleKind(1.5, "send", nil)
		Expect(s.Run()).To(Succeed())

		Expect(buf.String()).To(ContainSubstring(`"kind":"send"`))
		Expect(buf.String()).To(ContainSubstring(`"time":1.5`))
		Expect(buf.String()).NotTo(ContainSubstring("Schedule"))
	})

	It("should log all positions when asked", func() {
		logger := zerolog.New(buf).Level(zerolog.DebugLevel)
		s.AcceptHook(NewEventLogger(logger).LogAllPositions())

		h, _ := s.Schedule(1, nil)
		s.Cancel(h)

		Expect(buf.String()).To(ContainSubstring(`"message":"Schedule"`))
		Expect(buf.String()).To(ContainSubstring(`"message":"Cancel"`))
	})
})
