package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/textextract"
)

var (
	ingestID    string
	ingestTitle string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Add documents to the local corpus",
	Long: `Reads each file, splits it into overlapping chunks, embeds the
chunks, and stores them in the local corpus index. Re-ingesting a file
replaces its previous chunk set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document ID (single file only; default: file name)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (single file only; default: file name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if len(args) > 1 && (ingestID != "" || ingestTitle != "") {
		return errors.New("--id and --title require a single file")
	}

	var failed int
	for _, path := range args {
		if err := ingestFile(cmd, path); err != nil {
			cmd.Printf("  %s: %v\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func ingestFile(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	extractedTitle, text := textextract.Extract(path, data)
	id, title := documentIdentity(path, extractedTitle)
	result, err := ingestService.IngestDocument(cmd.Context(), id, title, text)
	if err != nil {
		return err
	}

	switch result.Status {
	case domain.IngestPartial:
		cmd.Printf("  %s: ingested %d chunks, %d failed\n", path, result.ChunksStored, result.ChunksFailed)
	default:
		cmd.Printf("  %s: ingested %d chunks\n", path, result.ChunksStored)
	}
	return nil
}

// documentIdentity derives the document ID and title for a path,
// honouring the --id and --title flags.
func documentIdentity(path, extractedTitle string) (id, title string) {
	id = ingestID
	if id == "" {
		id = filepath.Base(path)
	}
	title = ingestTitle
	if title == "" {
		title = extractedTitle
	}
	return id, title
}
