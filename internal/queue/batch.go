package queue

import (
	"encoding/base64"

	"github.com/viafoto/viafoto/internal/classify"
	"github.com/viafoto/viafoto/internal/ocr"
)

// Photo is one input image: opaque bytes plus the name it was uploaded
// under. The queue only borrows it for hashing and encoding.
type Photo struct {
	Filename string
	Data     []byte
}

// Item is an enriched, cache-missed photo ready for submission: the eager
// base64 payload plus optional locally extracted OCR fields.
type Item struct {
	Filename string
	Hash     string
	Payload  string
	OCR      *ocr.Fields
}

// NewItem encodes the photo payload. No network I/O happens here.
func NewItem(p Photo, hash string) Item {
	return Item{
		Filename: p.Filename,
		Hash:     hash,
		Payload:  base64.StdEncoding.EncodeToString(p.Data),
	}
}

// Assemble partitions items into fixed-size batches preserving input
// order, so processing order is deterministic and progress reporting is
// reproducible.
func Assemble(items []Item, size int) [][]Item {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if len(items) == 0 {
		return nil
	}

	batches := make([][]Item, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

// batchImages converts a batch to the client's wire shape.
func batchImages(batch []Item) []classify.BatchImage {
	images := make([]classify.BatchImage, len(batch))
	for i, item := range batch {
		images[i] = classify.BatchImage{
			Base64:   item.Payload,
			Filename: item.Filename,
			Hash:     item.Hash,
			OCR:      item.OCR,
		}
	}
	return images
}
