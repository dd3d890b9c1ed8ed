package main

import (
	"fmt"
	"os"

	"github.com/de-tools/airregi-sync/pkg/runtime/terminal"
	"github.com/de-tools/airregi-sync/pkg/store/blob"
	"github.com/de-tools/airregi-sync/pkg/store/blob/azure"
	"github.com/de-tools/airregi-sync/pkg/store/blob/drive"
	"github.com/de-tools/airregi-sync/pkg/store/blob/minio"
	"github.com/de-tools/airregi-sync/pkg/store/blob/s3"
)

func main() {
	cli := terminal.NewCLI(terminal.Options{
		Registry: blob.NewRegistry(map[string]blob.Factory{
			"drive": drive.Factory,
			"s3":    s3.Factory,
			"minio": minio.Factory,
			"azure": azure.Factory,
		}),
		Output: os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
