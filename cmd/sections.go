package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// sectionsCmd represents the sections command
var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List Plex library sections",
	Long:  `List every library section on the server with the location id used to scope watch history.`,
	RunE:  runSections,
}

func init() {
	rootCmd.AddCommand(sectionsCmd)
}

func runSections(cmd *cobra.Command, args []string) error {
	sections, err := plexClient.FetchLibrarySections(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get library sections: %w", err)
	}

	if len(sections) == 0 {
		fmt.Println("No library sections found.")
		return nil
	}

	fmt.Printf("\nFound %d library sections:\n", len(sections))
	fmt.Println(strings.Repeat("-", 60))

	for _, section := range sections {
		marker := " "
		if strings.EqualFold(section.Title, cfg.Plex.Library) {
			marker = "*"
		}
		locationID, ok := section.LocationID()
		if !ok {
			locationID = "-"
		}
		fmt.Printf("%s %s (%s) key=%s location=%s\n", marker, section.Title, section.Type, section.Key, locationID)
		for _, loc := range section.Locations {
			fmt.Printf("    %d: %s\n", loc.ID, loc.Path)
		}
	}

	return nil
}
