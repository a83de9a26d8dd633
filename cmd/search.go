package main

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/person-search/internal/model"
	"github.com/sells-group/person-search/internal/orchestrator"
)

var (
	searchCandidateID string
	searchCandidateNm string
	searchReferenceID string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Aggregate a full person profile and print it as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.SearchRequest{
			Query:            strings.Join(args, " "),
			ReferencePhotoID: searchReferenceID,
		}
		if searchCandidateID != "" {
			req.Candidate = &model.Candidate{ID: searchCandidateID, Name: searchCandidateNm}
		}

		person, err := env.Orchestrator.Search(ctx, req)
		if errors.Is(err, orchestrator.ErrPersistence) {
			// The profile is complete; only storing it failed.
			if perr := printJSON(person); perr != nil {
				return perr
			}
			return err
		}
		if err != nil {
			return eris.Wrap(err, "search")
		}
		return printJSON(person)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCandidateID, "candidate-id", "", "selected candidate id from the candidates command")
	searchCmd.Flags().StringVar(&searchCandidateNm, "candidate-name", "", "selected candidate name")
	searchCmd.Flags().StringVar(&searchReferenceID, "reference-photo", "", "reference photo id returned by the candidates command")
	rootCmd.AddCommand(searchCmd)
}
