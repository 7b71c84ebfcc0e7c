package metrics

import (
	"testing"
	"time"
)

func TestStopwatch(t *testing.T) {
	mockReporter := NewMockReporter()
	_Reporters = []Reporter{mockReporter}
	defer func() {
		_Reporters = []Reporter{}
	}()

	sw := getStopWatch("test_stopwatch", "test_group")

	t.Run("TestStopwatchRecord", func(t *testing.T) {
		start := time.Now().Add(-25 * time.Millisecond)
		d := sw.RecordWithDim(nil, start)
		if d < 25*time.Millisecond {
			t.Errorf("Expected duration >= 25ms, got %v", d)
		}

		records := mockReporter.GetReportedRecords()
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}

		record := records[0]
		if record.Metrics().Policy() != Policy_Stopwatch {
			t.Errorf("Expected policy Policy_Stopwatch, got %v", record.Metrics().Policy())
		}
		if record.Value() < 25 {
			t.Errorf("Expected recorded ms >= 25, got %v", record.Value())
		}
		if _, cnt := record.RawData(); cnt != 1 {
			t.Errorf("Expected count 1, got %d", cnt)
		}
	})

	t.Run("TestStopwatchRecordWithDim", func(t *testing.T) {
		mockReporter.Reset()

		sw.RecordWithDim(Dimension{DimContext: "emulation"}, time.Now())
		records := mockReporter.GetReportedRecords()
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
		if dim := records[0].Dimensions(); dim[DimContext] != "emulation" {
			t.Errorf("Expected dimension context 'emulation', got '%s'", dim[DimContext])
		}
	})
}
