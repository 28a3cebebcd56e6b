// Package archive stores the verbatim forecast response in object storage before it is transformed.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/serialization"
)

const moduleName = "archive"

// ContentType of every archived object.
const ContentType = "application/json"

// keyLayout renders the second-granularity timestamp of an object key.
const keyLayout = "20060102_150405"

// Writer uploads raw payloads to the configured bucket.
type Writer struct {
	resolver   storage.StorageConnectionResolver
	storageRef string
	bucket     string
	location   *time.Location
}

// NewWriter creates a Writer for the archive config block.
func NewWriter(cfg *config.Config, resolver storage.StorageConnectionResolver) *Writer {
	return &Writer{
		resolver:   resolver,
		storageRef: cfg.ETL.Archive.StorageRef,
		bucket:     cfg.ETL.Archive.Bucket,
		location:   cfg.Location(),
	}
}

// ObjectKey returns "{city}_{YYYYMMDD_HHMMSS}.json" for a fetch at fetchedAt in loc.
func ObjectKey(city string, fetchedAt time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s_%s.json", city, fetchedAt.In(loc).Format(keyLayout))
}

// Archive makes sure the bucket exists and uploads the payload. It returns the object key.
func (w *Writer) Archive(ctx context.Context, payload *model.RawForecastPayload) (string, error) {
	body, err := w.document(payload)
	if err != nil {
		return "", err
	}

	conn, err := w.resolver.ResolveStorageConnection(ctx, w.storageRef)
	if err != nil {
		return "", exception.NewTerminalError(moduleName, fmt.Sprintf("failed to resolve storage connection '%s'", w.storageRef), err)
	}
	if err := conn.EnsureBucket(ctx, w.bucket); err != nil {
		return "", exception.NewTerminalError(moduleName, fmt.Sprintf("failed to ensure bucket '%s'", w.bucket), err)
	}

	key := ObjectKey(payload.City, payload.FetchedAt, w.location)
	if err := conn.Upload(ctx, w.bucket, key, bytes.NewReader(body), ContentType); err != nil {
		return "", exception.NewTerminalError(moduleName, fmt.Sprintf("failed to upload '%s/%s'", w.bucket, key), err)
	}
	logger.Infof("Archived raw forecast for %s to %s/%s (%d bytes).", payload.City, w.bucket, key, len(body))
	return key, nil
}

// document is the response object with "city" and "fetched_at" added.
func (w *Writer) document(payload *model.RawForecastPayload) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if len(payload.Body) > 0 {
		if err := json.Unmarshal(payload.Body, &doc); err != nil {
			return nil, exception.NewTerminalError(moduleName, "raw payload is not a JSON object", err)
		}
	} else {
		forecast, err := json.Marshal(payload.Forecast)
		if err != nil {
			return nil, exception.NewTerminalError(moduleName, "failed to encode forecast", err)
		}
		if err := json.Unmarshal(forecast, &doc); err != nil {
			return nil, exception.NewTerminalError(moduleName, "failed to encode forecast", err)
		}
	}

	city, err := json.Marshal(payload.City)
	if err != nil {
		return nil, exception.NewTerminalError(moduleName, "failed to encode city", err)
	}
	doc["city"] = city
	doc["fetched_at"] = json.RawMessage(`"` + payload.FetchedAt.In(w.location).Format(time.RFC3339) + `"`)

	return serialization.MarshalIndent(doc)
}
