package log

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

// Persisted records use ASCII separator control characters as delimiters so
// messages may contain newlines without breaking the framing:
//
//	\x1E<severityChar>\x1D<elapsedMs>\x1D<threadTag>\x1D<message>\n
const (
	recordMark byte = 0x1E // Record Separator, prefixes every record
	fieldMark  byte = 0x1D // Group Separator, separates record fields
)

// AppendRecord renders one delimited record into buf. elapsedMS is the
// non-negative wall-clock distance from the destination context's start time.
func AppendRecord(buf *bytes.Buffer, level Level, elapsedMS int64, tag string, message string) {
	var tmp [20]byte
	buf.WriteByte(recordMark)
	buf.WriteByte(level.Char())
	buf.WriteByte(fieldMark)
	buf.Write(strconv.AppendInt(tmp[:0], elapsedMS, 10))
	buf.WriteByte(fieldMark)
	buf.WriteString(tag)
	buf.WriteByte(fieldMark)
	buf.WriteString(message)
	buf.WriteByte('\n')
}

// Record is one parsed persisted record, the inverse of AppendRecord.
type Record struct {
	Level     Level
	ElapsedMS int64
	Tag       string
	Message   string
}

// ParseRecords parses the full contents of a context's file back into records.
// Framing relies on the record mark rather than newlines, so messages that
// themselves contain newlines parse unambiguously; messages must not contain
// the separator characters.
func ParseRecords(data []byte) ([]Record, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != recordMark {
		return nil, errors.New("log record stream does not start with a record mark")
	}

	var records []Record
	for _, chunk := range bytes.Split(data[1:], []byte{recordMark}) {
		rec, err := parseRecordBody(chunk)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseRecordBody parses one record with the leading record mark stripped.
func parseRecordBody(chunk []byte) (Record, error) {
	if len(chunk) == 0 || chunk[len(chunk)-1] != '\n' {
		return Record{}, errors.New("log record is not newline-terminated")
	}
	fields := bytes.SplitN(chunk[:len(chunk)-1], []byte{fieldMark}, 4)
	if len(fields) != 4 {
		return Record{}, errors.Errorf("log record has %d fields, want 4", len(fields))
	}
	if len(fields[0]) != 1 {
		return Record{}, errors.New("log record severity is not a single character")
	}
	level, ok := LevelFromChar(fields[0][0])
	if !ok {
		return Record{}, errors.Errorf("unknown severity character %q", fields[0][0])
	}
	elapsed, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return Record{}, errors.Wrap(err, "parse record elapsed ms")
	}
	if elapsed < 0 {
		return Record{}, errors.Errorf("negative record elapsed ms %d", elapsed)
	}
	return Record{
		Level:     level,
		ElapsedMS: elapsed,
		Tag:       string(fields[2]),
		Message:   string(fields[3]),
	}, nil
}
