// Command objectbench drives the write/flush/read pipeline of a single
// archive end to end against a chosen storage backend, as a smoke test and
// throughput benchmark.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kenneth/zerostash-objectstore/internal/objectstore"
	"github.com/kenneth/zerostash-objectstore/internal/objectstore/backend/memory"
	"github.com/kenneth/zerostash-objectstore/internal/objectstore/backend/s3backend"
)

func main() {
	var (
		backendType = flag.String("backend", "memory", "Storage backend: memory or s3")
		s3Endpoint  = flag.String("s3-endpoint", "", "S3-compatible endpoint URL (s3 backend only)")
		s3Bucket    = flag.String("s3-bucket", "objectbench", "Bucket name (s3 backend only)")
		s3Region    = flag.String("s3-region", "us-east-1", "Region (s3 backend only)")
		writers     = flag.Int("writers", 4, "Number of writer slots in the balancer")
		chunks      = flag.Int("chunks", 200, "Number of chunks to write")
		chunkSize   = flag.Int("chunk-size", 256*1024, "Plaintext size per chunk, in bytes")
		username    = flag.String("username", "bench", "Archive username")
		password    = flag.String("password", "bench-password", "Archive password")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := run(logger, *backendType, *s3Endpoint, *s3Bucket, *s3Region, *writers, *chunks, *chunkSize, *username, *password); err != nil {
		logger.WithError(err).Fatal("objectbench failed")
	}
}

func run(logger *logrus.Logger, backendType, s3Endpoint, s3Bucket, s3Region string, writers, numChunks, chunkSize int, username, password string) error {
	ctx := context.Background()
	rng := objectstore.SystemRandom

	hw := objectstore.GetHardwareAccelerationInfo()
	logger.WithField("aes_hardware_accelerated", hw.Enabled).Info("objectbench: starting")

	backend, err := buildBackend(ctx, backendType, s3Endpoint, s3Bucket, s3Region)
	if err != nil {
		return fmt.Errorf("building backend: %w", err)
	}

	keySource, err := objectstore.NewSymmetricFromCredentials(username, password, rng)
	if err != nil {
		return fmt.Errorf("deriving key source: %w", err)
	}

	compress, err := objectstore.NewZstdCompress()
	if err != nil {
		return fmt.Errorf("building compressor: %w", err)
	}

	pool := objectstore.NewBufferPool()
	writer, err := objectstore.NewWriter(backend, compress, keySource.ChunkKey(), rng, pool)
	if err != nil {
		return fmt.Errorf("building writer: %w", err)
	}
	balancer, err := objectstore.NewBalancer(writer, writers)
	if err != nil {
		return fmt.Errorf("building balancer: %w", err)
	}

	reader, err := objectstore.NewReader(backend, compress, keySource.ChunkKey(), nil)
	if err != nil {
		return fmt.Errorf("building reader: %w", err)
	}

	plaintexts := make([][]byte, numChunks)
	pointers := make([]objectstore.ChunkPointer, numChunks)

	start := time.Now()
	for i := 0; i < numChunks; i++ {
		data := make([]byte, chunkSize)
		if err := rng.Fill(data); err != nil {
			return fmt.Errorf("generating chunk %d: %w", i, err)
		}
		hash := sha256.Sum256(data)

		ptr, err := balancer.WriteChunk(ctx, hash, data)
		if err != nil {
			return fmt.Errorf("writing chunk %d: %w", i, err)
		}
		plaintexts[i] = data
		pointers[i] = ptr
	}
	if err := balancer.Flush(ctx); err != nil {
		return fmt.Errorf("flushing balancer: %w", err)
	}
	writeElapsed := time.Since(start)

	start = time.Now()
	target := make([]byte, chunkSize)
	for i, ptr := range pointers {
		got, err := reader.ReadChunk(ctx, ptr, target)
		if err != nil {
			return fmt.Errorf("reading chunk %d: %w", i, err)
		}
		if string(got) != string(plaintexts[i]) {
			return fmt.Errorf("chunk %d round-tripped incorrectly", i)
		}
	}
	readElapsed := time.Since(start)

	totalBytes := int64(numChunks) * int64(chunkSize)
	logger.WithFields(logrus.Fields{
		"chunks":          numChunks,
		"chunk_size":      chunkSize,
		"total_bytes":     totalBytes,
		"write_duration":  writeElapsed,
		"read_duration":   readElapsed,
		"buffer_pool_hit_rate": pool.HitRate(),
	}).Info("objectbench: round trip complete")

	fmt.Printf("wrote+read %d chunks (%d bytes) in %v write / %v read, buffer pool hit rate %.1f%%\n",
		numChunks, totalBytes, writeElapsed, readElapsed, pool.HitRate()*100)

	return nil
}

func buildBackend(ctx context.Context, backendType, endpoint, bucket, region string) (objectstore.Backend, error) {
	switch backendType {
	case "", "memory":
		return memory.New(), nil
	case "s3":
		return s3backend.New(ctx, s3backend.Config{
			Endpoint: endpoint,
			Bucket:   bucket,
			Region:   region,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", backendType)
	}
}
