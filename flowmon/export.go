package flowmon

import (
	"github.com/scratchsim/scratchsim/datarecording"
)

// Tables written by Export.
const (
	FlowTable        = "flow_stats"
	PacketCountTable = "packet_count"
)

// FlowRow is the flat form of FlowSummary stored in a recording.
type FlowRow struct {
	RunID       string
	Flow        int
	TxPackets   uint64
	RxPackets   uint64
	LostPackets uint64
	Dropped     uint64
	TxBytes     uint64
	RxBytes     uint64
	DelayMean   float64
	DelayStdDev float64
	DelayP95    float64
	Throughput  float64
}

// PacketCountRow is the flat form of PacketCount stored in a recording.
type PacketCountRow struct {
	RunID       string
	Time        float64
	Transmitted uint64
	Received    uint64
}

// Export writes the current report into recorder, tagging each row with
// runID.
func (m *Monitor) Export(runID string, recorder datarecording.DataRecorder) {
	recorder.CreateTable(FlowTable, FlowRow{})
	recorder.CreateTable(PacketCountTable, PacketCountRow{})

	report := m.Report()

	for _, f := range report.Flows {
		recorder.InsertData(FlowTable, FlowRow{
			RunID:       runID,
			Flow:        f.Flow,
			TxPackets:   f.TxPackets,
			RxPackets:   f.RxPackets,
			LostPackets: f.LostPackets,
			Dropped:     f.Dropped,
			TxBytes:     f.TxBytes,
			RxBytes:     f.RxBytes,
			DelayMean:   f.DelayMean,
			DelayStdDev: f.DelayStdDev,
			DelayP95:    f.DelayP95,
			Throughput:  f.Throughput,
		})
	}

	for _, c := range report.PacketCounts {
		recorder.InsertData(PacketCountTable, PacketCountRow{
			RunID:       runID,
			Time:        c.Time,
			Transmitted: c.Transmitted,
			Received:    c.Received,
		})
	}

	recorder.Flush()
}
