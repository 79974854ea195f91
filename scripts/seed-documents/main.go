// Command seed-documents uploads every .txt and .pdf file in a directory to
// the assistant's document library.
//
// Usage:
//
//	API_URL=http://localhost:8080 go run ./scripts/seed-documents testdata/documents
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const batchSize = 10

type rebuildResult struct {
	Changed   bool   `json:"changed"`
	Documents int    `json:"documents"`
	Skipped   int    `json:"skipped"`
	Clinics   int    `json:"clinics"`
	Chunks    int    `json:"chunks"`
	Version   uint64 `json:"directory_version"`
}

type document struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type uploadResponse struct {
	Documents []document     `json:"documents"`
	Rebuild   *rebuildResult `json:"rebuild"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/seed-documents <directory>")
		fmt.Println("Example: go run ./scripts/seed-documents testdata/documents")
		os.Exit(1)
	}

	apiURL := strings.TrimRight(os.Getenv("API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	dir := os.Args[1]

	fmt.Printf("🌱 Seeding Document Library\n")
	fmt.Printf("============================\n")
	fmt.Printf("API URL: %s\n", apiURL)
	fmt.Printf("Directory: %s\n\n", dir)

	files, err := documentFiles(dir)
	if err != nil {
		fmt.Printf("❌ Error reading directory: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("❌ No .txt or .pdf files found in %s\n", dir)
		os.Exit(1)
	}
	fmt.Printf("Documents to upload: %d\n\n", len(files))

	ctx := context.Background()
	client := &http.Client{Timeout: 60 * time.Second}
	totalBatches := (len(files) + batchSize - 1) / batchSize
	failed := false

	for i := 0; i < len(files); i += batchSize {
		end := min(i+batchSize, len(files))
		batchNum := i/batchSize + 1
		fmt.Printf("📦 Batch %d/%d: Uploading %d documents...\n", batchNum, totalBatches, end-i)

		result, err := upload(ctx, client, apiURL+"/documents", files[i:end])
		if err != nil {
			fmt.Printf("   ❌ %v\n", err)
			failed = true
			continue
		}
		if rb := result.Rebuild; rb != nil {
			fmt.Printf("   ✅ Library holds %d documents: %d clinics, %d chunks (directory v%d, %d skipped)\n",
				rb.Documents, rb.Clinics, rb.Chunks, rb.Version, rb.Skipped)
		} else {
			fmt.Printf("   ✅ Library holds %d documents\n", len(result.Documents))
		}
	}

	if failed {
		fmt.Printf("\n⚠️  Seeding finished with errors\n")
		os.Exit(1)
	}
	fmt.Printf("\n✅ Document seeding complete!\n")
	fmt.Printf("\n📝 Next steps:\n")
	fmt.Printf("  1. List clinics: curl %s/clinics\n", apiURL)
	fmt.Printf("  2. Ask a question: curl -X POST %s/chat/message -d '{\"text\":\"what services do you offer?\"}'\n", apiURL)
}

func documentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".pdf":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func upload(ctx context.Context, client *http.Client, url string, paths []string) (*uploadResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, path := range paths {
		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result uploadResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
