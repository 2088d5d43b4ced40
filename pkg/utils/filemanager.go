// =============================================================================
// Cattle Text - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the parse commands:
//   - Directory management
//   - Output file naming
//   - Archival of the previous output before it is replaced
//   - Archive retention
//   - Failure log generation
//
// ARCHIVAL STRATEGY:
//   - Captures are never moved or modified; they belong to the acquisition tool
//   - When a changed document replaces an existing one, the existing one is
//     copied to the archive first, under a timestamped unique name
//   - Archives older than the retention period are removed after each run
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the parse commands.
type FileManager struct {
	// OutputDir is the directory where documents are written.
	OutputDir string

	// ArchiveDir is the directory for archived documents.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: output_archive/2025/01/15/metrics_20250115_143022_1a2b3c4d.json
	UseTimestampSubdirs bool

	// now is replaced in tests.
	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, archiveDir string) *FileManager {
	return &FileManager{
		OutputDir:  outputDir,
		ArchiveDir: archiveDir,
		now:        time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output and archive directories if they
// don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.ArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// OutputPath returns where the document for a capture is written.
//
// PARAMETERS:
//   - format: The file name format (see GenerateOutputFileName).
//   - original: The capture name without directory or extension.
func (fm *FileManager) OutputPath(format, original string) string {
	name := GenerateOutputFileName(format, map[string]string{"original": original}, ".json")
	return filepath.Join(fm.OutputDir, name)
}

// XLSXPath returns the workbook path that sits next to a JSON document.
func XLSXPath(jsonPath string) string {
	return strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".xlsx"
}

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//     {original}  - Capture file name (without extension)
//   - params: A map of placeholder values.
//   - ext: The extension the name must end with.
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//
//	format: "{original}_{date}.json"
//	params: {"original": "national"}
//	output: "national_20250115.json"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveOutputFile copies an existing document into the archive directory.
//
// PARAMETERS:
//   - filePath: The document about to be replaced.
//
// RETURNS:
//   - The path of the archived copy, or "" if filePath does not exist.
//   - An error if archival fails.
//
// NOTE: The document is copied, not moved; the caller replaces it next.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !FileExists(filePath) {
		return "", nil
	}

	archivePath := fm.archivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}
	return archivePath, nil
}

// archivePath builds "<name>_<timestamp>_<short uuid><ext>" under the
// archive directory.
func (fm *FileManager) archivePath(filePath string) string {
	now := fm.clock()
	base := filepath.Base(filePath)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s_%s_%s%s",
		strings.TrimSuffix(base, ext),
		now.Format("20060102_150405"),
		uuid.New().String()[:8],
		ext)

	dir := fm.ArchiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}
	return filepath.Join(dir, name)
}

// CleanOldArchives removes archived files older than maxAge.
//
// PARAMETERS:
//   - maxAge: The maximum age of files to keep. Zero or negative keeps all.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func (fm *FileManager) CleanOldArchives(maxAge time.Duration) (int, error) {
	if maxAge <= 0 || !FileExists(fm.ArchiveDir) {
		return 0, nil
	}

	cutoff := fm.clock().Add(-maxAge)
	removed := 0

	err := filepath.Walk(fm.ArchiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}

	return removed, nil
}

// =============================================================================
// FAILURE LOG GENERATION
// =============================================================================

// FailureLogEntry represents one capture that could not be processed.
type FailureLogEntry struct {
	Timestamp    time.Time
	Capture      string
	ErrorType    string
	ErrorMessage string
}

// WriteFailureLog writes failure entries to a log file in outputDir.
//
// PARAMETERS:
//   - entries: The failures to write.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the log file, or "" when there is nothing to log.
//   - An error if writing fails.
func WriteFailureLog(entries []FailureLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(outputDir, fmt.Sprintf("failure_log_%s.txt", timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create failure log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Cattle Text - Failure Log\n"+
		"Generated: %s\n"+
		"Total Failures: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Failure #%d\n"+
			"  Timestamp:  %s\n"+
			"  Capture:    %s\n"+
			"  Error Type: %s\n"+
			"  Message:    %s\n\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Capture,
			entry.ErrorType,
			entry.ErrorMessage)
	}

	writer.WriteString("================================================================================\n" +
		"End of Failure Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush failure log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
