// Package writer persists settled trades as snappy-compressed parquet.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"gainstaker/config"
	"gainstaker/internal/metrics"
	"gainstaker/logger"
	"gainstaker/models"
)

const component = "journal"

type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, io.EOF }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// tradeRecord is the parquet schema of one settled trade. Decimal amounts
// are kept as strings so no precision is lost.
type tradeRecord struct {
	ID            string `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol        string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Side          string `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Quantity      string `parquet:"name=quantity, type=BYTE_ARRAY, convertedtype=UTF8"`
	Acquired      string `parquet:"name=acquired, type=BYTE_ARRAY, convertedtype=UTF8"`
	AcquiredAsset string `parquet:"name=acquired_asset, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderID       int64  `parquet:"name=order_id, type=INT64"`
	ExecutedAt    int64  `parquet:"name=executed_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Payload       string `parquet:"name=payload, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ObjectPutter is the part of the S3 client the journal uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Journal buffers settled trades and writes them out on Flush, to a local
// directory and, when configured, to S3.
type Journal struct {
	dir    string
	prefix string
	bucket string
	s3     ObjectPutter
	log    *logger.Log
	now    func() time.Time

	mu      sync.Mutex
	pending []models.TradeResult
	stats   metrics.JournalStats
}

// NewJournal builds a Journal from config. It returns nil when the journal
// is disabled.
func NewJournal(ctx context.Context, cfg *config.Config) (*Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	j := newJournal(cfg.Journal)
	if !cfg.Storage.S3.Enabled {
		return j, nil
	}

	bucket, err := normalizeBucketName(cfg.Storage.S3.Bucket)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(ctx, cfg.Storage.S3)
	if err != nil {
		return nil, err
	}
	j.bucket = bucket
	j.s3 = client

	j.log.WithComponent(component).WithFields(logger.Fields{
		"bucket":     bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("journal uploads enabled")
	return j, nil
}

func newJournal(cfg config.JournalConfig) *Journal {
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "trades"
	}
	return &Journal{
		dir:    cfg.Dir,
		prefix: prefix,
		log:    logger.GetLogger(),
		now:    time.Now,
	}
}

func newS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

func normalizeBucketName(raw string) (string, error) {
	bucket := strings.TrimSpace(raw)
	if bucket == "" {
		return "", fmt.Errorf("s3 bucket not configured")
	}
	return bucket, nil
}

// Record queues a settled trade for the next Flush.
func (j *Journal) Record(res models.TradeResult) error {
	if res.ID == "" {
		return fmt.Errorf("journal: trade without id")
	}
	j.mu.Lock()
	j.pending = append(j.pending, res)
	j.mu.Unlock()
	return nil
}

// Pending returns the number of trades waiting to be flushed.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// Flush writes all pending trades to one parquet file and returns its key.
// Nothing is written when no trades are pending.
func (j *Journal) Flush(ctx context.Context) (string, error) {
	j.mu.Lock()
	trades := j.pending
	j.pending = nil
	j.mu.Unlock()
	if len(trades) == 0 {
		return "", nil
	}

	stats := metrics.JournalStats{}
	defer func() {
		j.mu.Lock()
		j.stats.RecordsWritten += stats.RecordsWritten
		j.stats.FilesWritten += stats.FilesWritten
		j.stats.BytesWritten += stats.BytesWritten
		j.stats.Uploads += stats.Uploads
		j.stats.ErrorsCount += stats.ErrorsCount
		j.mu.Unlock()
		metrics.ReportJournal(j.log, component, stats)
	}()

	data, err := encode(trades)
	if err != nil {
		stats.ErrorsCount++
		j.requeue(trades)
		return "", fmt.Errorf("encode journal: %w", err)
	}
	key := j.objectKey(j.now().UTC())

	if j.dir != "" {
		path := filepath.Join(j.dir, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			stats.ErrorsCount++
			j.requeue(trades)
			return "", fmt.Errorf("create journal dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			stats.ErrorsCount++
			j.requeue(trades)
			return "", fmt.Errorf("write journal: %w", err)
		}
		stats.FilesWritten++
	}

	if j.s3 != nil {
		_, err := j.s3.PutObject(context.WithoutCancel(ctx), &s3.PutObjectInput{
			Bucket: aws.String(j.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			stats.ErrorsCount++
			j.log.WithComponent(component).WithError(err).WithFields(logger.Fields{
				"s3_key": key,
			}).Error("failed to upload journal")
			return key, fmt.Errorf("upload journal: %w", err)
		}
		stats.Uploads++
	}

	stats.RecordsWritten = int64(len(trades))
	stats.BytesWritten = int64(len(data))
	j.log.WithComponent(component).WithFields(logger.Fields{
		"key":     key,
		"records": len(trades),
		"bytes":   len(data),
	}).Info("journal flushed")
	return key, nil
}

// Stats returns the totals across all flushes.
func (j *Journal) Stats() metrics.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

func (j *Journal) requeue(trades []models.TradeResult) {
	j.mu.Lock()
	j.pending = append(trades, j.pending...)
	j.mu.Unlock()
}

func (j *Journal) objectKey(ts time.Time) string {
	datePath := fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day())
	filename := fmt.Sprintf("%s_%s.parquet", j.prefix, ts.Format("20060102150405.000"))
	return filepath.ToSlash(filepath.Join(datePath, filename))
}

func encode(trades []models.TradeResult) ([]byte, error) {
	mf := newMemFile()
	pw, err := writer.NewParquetWriter(mf, new(tradeRecord), 1)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, t := range trades {
		rec := tradeRecord{
			ID:            t.ID,
			Symbol:        t.Pair.Symbol(),
			Side:          t.Side.String(),
			Quantity:      t.Quantity.String(),
			Acquired:      t.Acquired.String(),
			AcquiredAsset: t.AcquiredAsset.String(),
			OrderID:       t.OrderID,
			ExecutedAt:    t.ExecutedAt.UTC().UnixMilli(),
			Payload:       string(t.Raw),
		}
		if err := pw.Write(rec); err != nil {
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return mf.Bytes(), nil
}
