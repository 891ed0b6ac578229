package replicator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/fedb/tabletd/internal/errs"
	"github.com/fedb/tabletd/internal/snapshot"
)

// FileCompression selects the wire compression used while streaming a
// snapshot file to a follower, independent of the file's own on-disk
// compression (snapshot.Compression).
type FileCompression int

const (
	FileCompressionOff FileCompression = iota
	FileCompressionLZ4
)

// transferKey identifies one in-flight snapshot file transfer.
type transferKey struct {
	endpoint string
	tid, pid uint32
	fileName string
}

// TransferManager coordinates SendSnapshot on the leader side: a
// snapshot is sent to a follower as three files (table_meta.txt, the
// data file named by MANIFEST, and MANIFEST itself), one block
// receiver at a time per (endpoint, tid, pid, file name) so a retried
// or duplicate request can't corrupt a transfer already in flight.
type TransferManager struct {
	mu     sync.Mutex
	active map[transferKey]struct{}
}

// NewTransferManager builds an empty TransferManager.
func NewTransferManager() *TransferManager {
	return &TransferManager{active: make(map[transferKey]struct{})}
}

// SnapshotFiles lists the three files a SendSnapshot transfer ships,
// in the order they must be sent: MANIFEST must land last so a
// receiver never sees a manifest pointing at a data file that hasn't
// finished arriving.
func SnapshotFiles(dir string) ([]string, error) {
	m, err := snapshot.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	return []string{"table_meta.txt", m.Name, "MANIFEST"}, nil
}

// BlockSender streams one file's bytes to endpoint in fixed-size
// blocks, keyed by blockID starting at zero. SendFile always starts a
// file at block zero; a transfer cannot resume from a later block.
type BlockSender interface {
	SendBlock(ctx context.Context, endpoint string, tid, pid uint32, fileName string, blockID uint32, data []byte, final bool) error
}

// SendFile streams srcPath to endpoint via sender in blockSize chunks,
// lz4-compressing the stream when fc is FileCompressionLZ4. It refuses
// to run if another transfer of the same (endpoint, tid, pid, file) is
// already active.
func (tm *TransferManager) SendFile(ctx context.Context, sender BlockSender, endpoint string, tid, pid uint32, srcPath string, blockSize int, fc FileCompression) error {
	key := transferKey{endpoint: endpoint, tid: tid, pid: pid, fileName: filepath.Base(srcPath)}

	tm.mu.Lock()
	if _, busy := tm.active[key]; busy {
		tm.mu.Unlock()
		return errs.New(errs.SnapshotIsSending, "snapshot file %q already sending to %s for %d_%d", key.fileName, endpoint, tid, pid)
	}
	tm.active[key] = struct{}{}
	tm.mu.Unlock()
	defer func() {
		tm.mu.Lock()
		delete(tm.active, key)
		tm.mu.Unlock()
	}()

	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	go func() {
		var dst io.WriteCloser = pw
		if fc == FileCompressionLZ4 {
			lzw := lz4.NewWriter(pw)
			dst = lzw
		}
		_, copyErr := io.Copy(dst, f)
		if fc == FileCompressionLZ4 {
			if closeErr := dst.Close(); copyErr == nil {
				copyErr = closeErr
			}
		}
		pw.CloseWithError(copyErr)
	}()

	if blockSize <= 0 {
		blockSize = 1 << 20
	}
	buf := make([]byte, blockSize)
	var blockID uint32
	for {
		n, readErr := pr.Read(buf)
		final := readErr == io.EOF
		if n > 0 || final {
			if err := sender.SendBlock(ctx, endpoint, tid, pid, key.fileName, blockID, buf[:n], final); err != nil {
				return fmt.Errorf("send block %d of %s to %s: %w", blockID, key.fileName, endpoint, err)
			}
			blockID++
		}
		if final {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// BlockReceiver is the follower-side counterpart of BlockSender: it
// accepts blocks for one (tid, pid, file) in order, assembles them
// into a temp file, and (if the sender compressed the stream)
// decompresses it into its final destination on the last block.
type BlockReceiver struct {
	mu       sync.Mutex
	active   map[transferKey]*os.File
	destRoot string
}

// NewBlockReceiver builds a BlockReceiver that writes received files
// under destRoot/<tid>_<pid>/.
func NewBlockReceiver(destRoot string) *BlockReceiver {
	return &BlockReceiver{active: make(map[transferKey]*os.File), destRoot: destRoot}
}

// Receive appends one block to the destination file, opening it on
// the first block (blockID == 0) and finalizing (closing, and
// decompressing if fc is LZ4) when final is true.
func (br *BlockReceiver) Receive(endpoint string, tid, pid uint32, fileName string, blockID uint32, data []byte, final bool, fc FileCompression) error {
	key := transferKey{endpoint: endpoint, tid: tid, pid: pid, fileName: fileName}
	dir := filepath.Join(br.destRoot, fmt.Sprintf("%d_%d", tid, pid))
	tmpPath := filepath.Join(dir, fileName+".recv")

	br.mu.Lock()
	f, ok := br.active[key]
	if !ok {
		if blockID != 0 {
			br.mu.Unlock()
			return errs.New(errs.BlockIdMismatch, "first block for %q is %d, want 0", fileName, blockID)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			br.mu.Unlock()
			return err
		}
		var err error
		f, err = os.Create(tmpPath)
		if err != nil {
			br.mu.Unlock()
			return errs.New(errs.FileReceiverInitFailed, "create %s: %v", fileName, err)
		}
		br.active[key] = f
	}

	if len(data) > 0 {
		if _, err := f.Write(data); err != nil {
			br.mu.Unlock()
			return errs.New(errs.ReceiveDataError, "write %s block %d: %v", fileName, blockID, err)
		}
	}
	if !final {
		br.mu.Unlock()
		return nil
	}
	delete(br.active, key)
	br.mu.Unlock()

	if err := f.Close(); err != nil {
		return err
	}
	if fc != FileCompressionLZ4 {
		return os.Rename(tmpPath, filepath.Join(dir, fileName))
	}
	return decompressLZ4File(tmpPath, filepath.Join(dir, fileName))
}

func decompressLZ4File(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	defer os.Remove(srcPath)

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, lz4.NewReader(src)); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
