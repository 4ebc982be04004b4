package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage corpus documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a document's chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Remove a document from the corpus",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsShowCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if corpusStore == nil {
		return errors.New("corpus store not configured")
	}

	docs, err := corpusStore.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("Corpus is empty.")
		return nil
	}

	for _, doc := range docs {
		cmd.Printf("  %s  %q  %d chunks  (%s)\n",
			doc.ID, doc.Title, doc.ChunkCount, doc.IngestedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	if corpusStore == nil {
		return errors.New("corpus store not configured")
	}

	doc, err := corpusStore.GetDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	chunks, err := corpusStore.GetChunks(cmd.Context(), doc.ID)
	if err != nil {
		return fmt.Errorf("reading chunks: %w", err)
	}

	cmd.Printf("%s (%d chunks)\n", doc.Title, len(chunks))
	for _, chunk := range chunks {
		cmd.Printf("\n--- chunk %d (offset %d) ---\n%s\n", chunk.Position, chunk.Offset, chunk.Content)
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if corpusStore == nil {
		return errors.New("corpus store not configured")
	}

	if err := corpusStore.DeleteDocument(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
