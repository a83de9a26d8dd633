package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/person-search/internal/model"
)

var (
	candRefine model.Refinements
	candPhoto  string
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates <query>",
	Short: "List ranked candidates for a name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var reference []byte
		if candPhoto != "" {
			data, err := os.ReadFile(candPhoto)
			if err != nil {
				return eris.Wrapf(err, "read photo %s", candPhoto)
			}
			reference = data
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Resolver.Lookup(ctx, strings.Join(args, " "), candRefine, reference)
		if err != nil {
			return eris.Wrap(err, "candidates")
		}
		return printJSON(resp)
	},
}

func init() {
	f := candidatesCmd.Flags()
	f.StringVar(&candRefine.Age, "age", "", "approximate age")
	f.StringVar(&candRefine.Location, "location", "", "city or state")
	f.StringVar(&candRefine.School, "school", "", "school attended")
	f.StringVar(&candRefine.Company, "company", "", "current or past employer")
	f.StringVar(&candRefine.Social, "social", "", "social handle or profile URL")
	f.StringVar(&candPhoto, "photo", "", "path to a reference photo")
	rootCmd.AddCommand(candidatesCmd)
}
