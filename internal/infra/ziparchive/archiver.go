package ziparchive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/framepipe/video-processing-service/internal/domain/port"
)

// Archiver packages a directory's files into a single zip using the standard
// library writer.
type Archiver struct{}

func NewArchiver() *Archiver {
	return &Archiver{}
}

func (a *Archiver) CreateArchive(ctx context.Context, sourceDir, destBaseName string) (string, error) {
	outputPath := destBaseName + ".zip"

	zipFile, err := os.Create(outputPath)
	if err != nil {
		return "", &port.ArchiveError{Err: err}
	}
	defer zipFile.Close()

	zw := zip.NewWriter(zipFile)

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		zw.Close()
		return "", &port.ArchiveError{Err: err}
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		select {
		case <-ctx.Done():
			zw.Close()
			return "", &port.ArchiveError{Err: ctx.Err()}
		default:
		}
		if err := addFileToZip(zw, filepath.Join(sourceDir, e.Name())); err != nil {
			zw.Close()
			return "", &port.ArchiveError{Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return "", &port.ArchiveError{Err: err}
	}
	return outputPath, nil
}

func addFileToZip(zw *zip.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(filename)
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
