package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/config"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/store"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the Analects passage corpus",
}

var corpusImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Load a corpus JSON file into Postgres",
	Long: `Upserts every passage of a {"data": [{"편", "구절번호", "내용"}]} file into
the passages table. Without a file the built-in corpus is imported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var envFiles []string
		if envFile != "" {
			envFiles = append(envFiles, envFile)
		}
		dbURL, err := config.DatabaseURL(envFiles...)
		if err != nil {
			return err
		}
		logger := setupLogging("info", "")

		var corpus *knowledge.Corpus
		if len(args) == 1 {
			corpus, err = knowledge.LoadCorpus(args[0])
		} else {
			corpus, err = knowledge.DefaultCorpus()
		}
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := store.New(ctx, dbURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		n, err := db.ImportPassages(ctx, corpus)
		if err != nil {
			return err
		}

		logger.Info("corpus imported", "passages", n)
		fmt.Fprintf(cmd.OutOrStdout(), "%d개의 구절을 가져왔습니다.\n", n)
		return nil
	},
}

func init() {
	corpusCmd.AddCommand(corpusImportCmd)
}
