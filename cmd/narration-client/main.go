// main package for the narration-client, a small CLI that submits a
// document to a running narration service, waits for the job to finish,
// and downloads the narrated audio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Flag names and descriptions.
const (
	flagServer      = "server"
	flagFile        = "file"
	flagOutput      = "output"
	flagTimeout     = "timeout"
	flagServerDesc  = "Base URL of the narration service"
	flagFileDesc    = "Document to narrate (.md, .txt, or .pdf)"
	flagOutputDesc  = "Output file path (.wav)"
	flagTimeoutDesc = "Maximum time to wait for the job, in seconds"
)

// Defaults.
const (
	defaultServer         = "http://localhost:8080"
	defaultTimeoutSeconds = 600
	pollInterval          = 2 * time.Second
	outputFilePerms       = 0o600
)

// Terminal job statuses as reported by the service.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// Static errors.
var (
	errFileRequired = errors.New("--file is required")
	errJobFailed    = errors.New("narration job failed")
	errWaitTimeout  = errors.New("timed out waiting for job")
)

type appFlags struct {
	server  string
	file    string
	output  string
	timeout int
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()
	if flags.file == "" {
		return errFileRequired
	}

	output := flags.output
	if output == "" {
		base := filepath.Base(flags.file)
		output = base[:len(base)-len(filepath.Ext(base))] + ".wav"
	}

	ctx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(flags.timeout)*time.Second,
	)
	defer cancel()

	client := &http.Client{Timeout: 30 * time.Second}

	jobID, err := submit(ctx, client, flags.server, flags.file)
	if err != nil {
		return err
	}

	fmt.Printf("Submitted job %s\n", jobID)

	outputRef, err := waitForCompletion(ctx, client, flags.server, jobID)
	if err != nil {
		return err
	}

	err = download(ctx, client, flags.server, outputRef, output)
	if err != nil {
		return err
	}

	fmt.Printf("Saved narration to %s\n", output)

	return nil
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.server, flagServer, defaultServer, flagServerDesc)
	flag.StringVar(&flags.file, flagFile, "", flagFileDesc)
	flag.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flag.IntVar(&flags.timeout, flagTimeout, defaultTimeoutSeconds, flagTimeoutDesc)
	flag.Parse()

	return flags
}

// submit uploads the document and returns the new job id.
func submit(ctx context.Context, client *http.Client, server, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	_, err = part.Write(data)
	if err != nil {
		return "", fmt.Errorf("failed to write upload form: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return "", fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, server+"/upload", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		responseBody, _ := io.ReadAll(resp.Body)

		return "", fmt.Errorf("upload rejected with status %s: %s",
			resp.Status, string(responseBody))
	}

	var payload struct {
		JobID string `json:"job_id"`
	}

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}

	return payload.JobID, nil
}

// waitForCompletion polls the job status until it reaches a terminal
// state and returns the audio artifact key.
func waitForCompletion(
	ctx context.Context,
	client *http.Client,
	server, jobID string,
) (string, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		status, outputRef, err := queryStatus(ctx, client, server, jobID)
		if err != nil {
			return "", err
		}

		switch status {
		case statusCompleted:
			return outputRef, nil
		case statusFailed:
			return "", fmt.Errorf("%w: %s", errJobFailed, jobID)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %s", errWaitTimeout, jobID)
		case <-ticker.C:
		}
	}
}

func queryStatus(
	ctx context.Context,
	client *http.Client,
	server, jobID string,
) (string, string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, server+"/status/"+jobID, http.NoBody)
	if err != nil {
		return "", "", fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("status request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status request returned %s for job %s",
			resp.Status, jobID)
	}

	var payload struct {
		Status    string `json:"status"`
		OutputRef string `json:"output_ref"`
	}

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode status response: %w", err)
	}

	return payload.Status, payload.OutputRef, nil
}

// download fetches the audio artifact and writes it to outputPath.
func download(
	ctx context.Context,
	client *http.Client,
	server, outputRef, outputPath string,
) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, server+"/audio/"+outputRef, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned %s for %s", resp.Status, outputRef)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio data: %w", err)
	}

	err = os.WriteFile(outputPath, data, outputFilePerms)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	return nil
}
