// Package fetch pulls Play earnings archives from the publisher revenue
// bucket when a month's export is absent locally. It only touches the
// network; parsing stays with the platform adapters.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"taxman/internal/core"
	"taxman/internal/log"
)

// ErrNoData means the bucket holds no earnings archive for the month.
// Callers treat it as a missing month, not a failure.
var ErrNoData = errors.New("no earnings archive for month")

// Fetcher downloads monthly earnings archives from a Play publisher
// revenue bucket and unpacks the CSV exports into the local data
// directory, named the way the adapters expect to find them.
type Fetcher struct {
	bucket   string
	credFile string
	dataRoot string
	lg       *log.Logger
}

func New(bucket, credFile, dataRoot string, lg *log.Logger) *Fetcher {
	return &Fetcher{
		bucket:   bucket,
		credFile: credFile,
		dataRoot: dataRoot,
		lg:       lg.WithComponent(log.ComponentFetch),
	}
}

// Enabled reports whether a revenue bucket is configured at all.
func (f *Fetcher) Enabled() bool {
	return f.bucket != ""
}

// Fetch downloads every earnings archive the bucket holds for the month
// and extracts the app CSVs under {dataRoot}/play-store. Returns
// ErrNoData when the bucket has nothing for the month.
func (f *Fetcher) Fetch(ctx context.Context, month core.TaxMonth) error {
	var opts []option.ClientOption
	if f.credFile != "" {
		opts = append(opts, option.WithCredentialsFile(f.credFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	prefix := fmt.Sprintf("earnings/earnings_%04d%02d", month.Year, month.Month)
	f.lg.Info("listing earnings archives",
		log.FieldMonth, month.String(), "bucket", f.bucket, "prefix", prefix)

	it := client.Bucket(f.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var archives []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("list bucket %s: %w", f.bucket, err)
		}
		if strings.HasSuffix(attrs.Name, ".zip") {
			archives = append(archives, attrs.Name)
		}
	}
	if len(archives) == 0 {
		return fmt.Errorf("%w: %s", ErrNoData, month)
	}

	written := 0
	for _, name := range archives {
		data, err := f.download(ctx, client, name)
		if err != nil {
			return err
		}
		n, err := f.extract(data, month, written)
		if err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
		written += n
	}
	if written == 0 {
		return fmt.Errorf("%w: %s", ErrNoData, month)
	}
	f.lg.Info("fetched earnings exports",
		log.FieldMonth, month.String(), "archives", len(archives), "files", written)
	return nil
}

func (f *Fetcher) download(ctx context.Context, client *storage.Client, name string) ([]byte, error) {
	r, err := client.Bucket(f.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", name, err)
	}
	return data, nil
}

// extract unpacks the app CSVs from one archive. offset continues the
// split-file numbering across archives: the first CSV of the month
// lands at 2024-01.csv, later ones at 2024-01-1.csv and so on.
func (f *Fetcher) extract(data []byte, month core.TaxMonth, offset int) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}

	written := 0
	for _, entry := range zr.File {
		base := filepath.Base(entry.Name)
		if !strings.HasPrefix(base, "PlayApps_") || !strings.HasSuffix(base, ".csv") {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return written, fmt.Errorf("open archive entry %s: %w", entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return written, fmt.Errorf("read archive entry %s: %w", entry.Name, err)
		}

		dest := f.destPath(month, offset+written)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return written, err
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return written, err
		}
		f.lg.Debug("extracted export",
			log.FieldMonth, month.String(), log.FieldPath, dest)
		written++
	}
	return written, nil
}

func (f *Fetcher) destPath(month core.TaxMonth, index int) string {
	name := month.String() + ".csv"
	if index > 0 {
		name = fmt.Sprintf("%s-%d.csv", month, index)
	}
	return filepath.Join(f.dataRoot, "play-store", name)
}
