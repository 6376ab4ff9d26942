package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ParquetRow is the columnar form of a Record.
type ParquetRow struct {
	ID          string `parquet:"id"`
	DomainName  string `parquet:"domain_name"`
	ProblemName string `parquet:"problem_name"`
	Status      string `parquet:"status"`
	Error       string `parquet:"error"`
	Tasks       string `parquet:"tasks"`
	TaskCount   int64  `parquet:"task_count"`
	DurationNS  int64  `parquet:"duration_ns"`
	CreatedAt   string `parquet:"created_at"`
}

func toParquetRow(r Record) (ParquetRow, error) {
	tasks, err := json.Marshal(nonNilTasks(r.Tasks))
	if err != nil {
		return ParquetRow{}, fmt.Errorf("marshal tasks of %s: %w", r.ID, err)
	}
	return ParquetRow{
		ID:          r.ID.String(),
		DomainName:  r.DomainName,
		ProblemName: r.ProblemName,
		Status:      string(r.Status),
		Error:       r.Error,
		Tasks:       string(tasks),
		TaskCount:   int64(len(r.Tasks)),
		DurationNS:  r.Duration.Nanoseconds(),
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// ExportParquet writes records to w as a parquet file. Tasks are stored as a
// JSON array per row.
func ExportParquet(w io.Writer, records []Record) error {
	rows := make([]ParquetRow, 0, len(records))
	for _, r := range records {
		row, err := toParquetRow(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	writer := parquet.NewGenericWriter[ParquetRow](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads rows written by ExportParquet.
func ReadParquet(data []byte) ([]ParquetRow, error) {
	reader := parquet.NewGenericReader[ParquetRow](bytes.NewReader(data))
	defer reader.Close()

	var rows []ParquetRow
	batch := make([]ParquetRow, 64)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet: %w", err)
		}
	}
	return rows, nil
}
