// Command upload ships captured sensor session files to a running
// analytics server. Intended for capture devices that record sessions
// offline and sync in batches.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/banshee-data/walkby.report/internal/uploader"
)

var (
	server     = flag.String("server", "http://localhost:8080", "analytics server base URL")
	sessionDir = flag.String("sessions", "", "directory of session JSON files to upload")
	retries    = flag.Int("retries", 2, "extra attempts after a transport or server error")
	retryDelay = flag.Duration("retry-delay", 2*time.Second, "delay between attempts")
	remove     = flag.Bool("rm", false, "delete each file after successful upload")
)

func main() {
	flag.Parse()

	if *sessionDir == "" {
		fmt.Fprintln(os.Stderr, "-sessions is required")
		flag.Usage()
		os.Exit(2)
	}

	u := uploader.New(*server)
	u.Retries = *retries
	u.RetryDelay = *retryDelay
	u.RemoveUploaded = *remove

	res, err := u.UploadDir(*sessionDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("uploaded %d sessions (%d samples), %d failed\n", res.Uploaded, res.Samples, res.Failed)
	if res.Failed > 0 {
		os.Exit(1)
	}
}
