package generator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vanshika/muletrace/internal/ingest"
)

// CSVTimestampLayout is the timestamp format written to generated files.
const CSVTimestampLayout = "2006-01-02 15:04:05"

// WriteDataset writes transactions.csv and planted.json under dir.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(dir, "transactions.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", csvPath, err)
	}
	if err := WriteCSV(file, dataset); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", csvPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", csvPath, err)
	}

	return writeJSON(filepath.Join(dir, "planted.json"), dataset.Planted)
}

// WriteCSV renders the transactions in the upload format accepted by
// ingest.ReadCSV.
func WriteCSV(w io.Writer, dataset Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ingest.RequiredColumns); err != nil {
		return err
	}
	for _, tx := range dataset.Transactions {
		record := make([]string, len(ingest.RequiredColumns))
		for i, col := range ingest.RequiredColumns {
			switch col {
			case ingest.ColumnTransactionID:
				record[i] = tx.ID
			case ingest.ColumnSenderID:
				record[i] = tx.Sender
			case ingest.ColumnReceiverID:
				record[i] = tx.Receiver
			case ingest.ColumnAmount:
				record[i] = tx.Amount.StringFixed(2)
			case ingest.ColumnTimestamp:
				record[i] = tx.Timestamp.UTC().Format(CSVTimestampLayout)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(path string, data any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	return nil
}
