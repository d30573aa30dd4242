// Package publish mirrors current rankings into an Elasticsearch index for
// reporting dashboards.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"supplier-ranking/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Document is the indexed shape of a ranked supplier. One document per
// supplier; a supplier that changes region is overwritten.
type Document struct {
	SupplierID       string    `json:"supplier_id"`
	RegionID         string    `json:"region_id"`
	Rank             int       `json:"rank"`
	RegionSize       int       `json:"region_size"`
	Percentile       float64   `json:"percentile"`
	Badge            string    `json:"badge"`
	TotalScore       float64   `json:"total_score"`
	PriceScore       float64   `json:"price_score"`
	ConsistencyScore float64   `json:"consistency_score"`
	ReliabilityScore float64   `json:"reliability_score"`
	FillScore        float64   `json:"fill_score"`
	InsufficientData bool      `json:"insufficient_data"`
	WindowStart      string    `json:"window_start"`
	WindowEnd        string    `json:"window_end"`
	ComputedAt       time.Time `json:"computed_at"`
}

func NewDocument(s models.ScoreSnapshot) Document {
	return Document{
		SupplierID:       s.SupplierID,
		RegionID:         s.RegionID,
		Rank:             s.Rank,
		RegionSize:       s.RegionSize,
		Percentile:       s.Percentile.InexactFloat64(),
		Badge:            string(s.Badge),
		TotalScore:       s.TotalScore.InexactFloat64(),
		PriceScore:       s.Scores.Price.InexactFloat64(),
		ConsistencyScore: s.Scores.Consistency.InexactFloat64(),
		ReliabilityScore: s.Scores.Reliability.InexactFloat64(),
		FillScore:        s.Scores.Fill.InexactFloat64(),
		InsufficientData: s.InsufficientData,
		WindowStart:      s.WindowStart.Format(time.DateOnly),
		WindowEnd:        s.WindowEnd.Format(time.DateOnly),
		ComputedAt:       s.ComputedAt.UTC(),
	}
}

type IndexPublisher struct {
	client *elasticsearch.Client
	index  string
}

func NewIndexPublisher(client *elasticsearch.Client, index string) *IndexPublisher {
	return &IndexPublisher{client: client, index: index}
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// PublishRegion indexes every snapshot of the region in one bulk request.
func (p *IndexPublisher) PublishRegion(ctx context.Context, regionID string, snapshots []models.ScoreSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	body, err := bulkBody(p.index, snapshots)
	if err != nil {
		return err
	}

	req := esapi.BulkRequest{
		Index: p.index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("bulk index %s: %w", regionID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bulk index %s: %s: %s", regionID, res.Status(), bytes.TrimSpace(msg))
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !parsed.Errors {
		return nil
	}

	failed := 0
	var first string
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Error == nil {
				continue
			}
			failed++
			if first == "" {
				first = fmt.Sprintf("%s: %s", result.ID, result.Error.Reason)
			}
		}
	}
	return fmt.Errorf("bulk index %s: %d of %d documents failed, first: %s", regionID, failed, len(snapshots), first)
}

func bulkBody(index string, snapshots []models.ScoreSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, s := range snapshots {
		meta := map[string]map[string]string{
			"index": {"_index": index, "_id": s.SupplierID},
		}
		if err := enc.Encode(meta); err != nil {
			return nil, err
		}
		if err := enc.Encode(NewDocument(s)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
