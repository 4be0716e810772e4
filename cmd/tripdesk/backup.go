package main

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/store"
)

const (
	ledgerEntry   = "tripdesk/ledger.db"
	manifestEntry = "tripdesk/manifest.json"
)

type manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
}

func runBackup(args []string) error {
	var outputPath string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			outputPath = args[i]
		}
	}

	if outputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: tripdesk backup -f <output.tar.zst>\n")
		return fmt.Errorf("missing -f flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Path == store.MemoryPath {
		slog.Warn("store is in memory, the backup will only contain an empty ledger")
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	size, err := backupLedger(db, cfg.Store.Path, outputPath)
	if err != nil {
		return err
	}

	fmt.Printf("Backup complete: %s\n", formatSize(size))
	return nil
}

// backupLedger snapshots the ledger into a zstd-compressed tar at
// outputPath and returns the archive size.
func backupLedger(db *store.Store, source, outputPath string) (int64, error) {
	tmp, err := os.MkdirTemp("", "tripdesk-backup-*")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	snapshot := filepath.Join(tmp, "ledger.db")
	if err := db.Snapshot(snapshot); err != nil {
		return 0, err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return 0, fmt.Errorf("create zstd writer: %w", err)
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	meta, err := json.Marshal(manifest{Version: version, CreatedAt: time.Now().UTC(), Source: source})
	if err != nil {
		return 0, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeEntry(tw, manifestEntry, meta); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(snapshot)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	if err := writeEntry(tw, ledgerEntry, data); err != nil {
		return 0, err
	}

	// Close everything explicitly to catch write errors
	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("close zstd: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close file: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}
	return info.Size(), nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write tar header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write tar data: %w", err)
	}
	return nil
}

func runRestore(args []string) error {
	var inputPath string
	overwrite := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			inputPath = args[i]
		case "-overwrite":
			overwrite = true
		}
	}

	if inputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: tripdesk restore -f <backup.tar.zst> [-overwrite]\n")
		return fmt.Errorf("missing -f flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m, err := readManifest(inputPath)
	if err != nil {
		return fmt.Errorf("scan archive: %w", err)
	}
	slog.Info("restoring ledger", "created_at", m.CreatedAt, "version", m.Version, "target", cfg.Store.Path)

	if err := restoreLedger(inputPath, cfg.Store.Path, overwrite); err != nil {
		return err
	}

	fmt.Printf("Restore complete: %s\n", cfg.Store.Path)
	return nil
}

// readManifest returns the archive's manifest without extracting the ledger.
func readManifest(path string) (*manifest, error) {
	var m *manifest
	err := walkArchive(path, func(name string, r io.Reader) (bool, error) {
		if name != manifestEntry {
			return false, nil
		}
		m = &manifest{}
		if err := json.NewDecoder(r).Decode(m); err != nil {
			return true, fmt.Errorf("decode manifest: %w", err)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("archive has no manifest")
	}
	return m, nil
}

// restoreLedger extracts the ledger from the archive to dbPath. An existing
// database is only replaced when overwrite is set.
func restoreLedger(inputPath, dbPath string, overwrite bool) error {
	if dbPath == "" || dbPath == store.MemoryPath {
		return errors.New("store.path is in memory, set a file path to restore into")
	}
	if _, err := os.Stat(dbPath); err == nil && !overwrite {
		return fmt.Errorf("%s already exists, add -overwrite to replace it", dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := dbPath + ".restore"
	found := false
	err := walkArchive(inputPath, func(name string, r io.Reader) (bool, error) {
		if name != ledgerEntry {
			return false, nil
		}
		found = true
		out, err := os.Create(tmp)
		if err != nil {
			return true, fmt.Errorf("create %s: %w", tmp, err)
		}
		if _, err := io.Copy(out, r); err != nil {
			out.Close()
			return true, fmt.Errorf("write ledger: %w", err)
		}
		return true, out.Close()
	})
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if !found {
		return errors.New("archive has no ledger")
	}

	// Stale WAL files would be replayed over the restored database.
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// walkArchive calls fn for every regular entry until fn reports done.
func walkArchive(path string, fn func(name string, r io.Reader) (bool, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		done, err := fn(hdr.Name, tr)
		if err != nil || done {
			return err
		}
	}
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
