package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(participantCmd)

	participantCmd.AddCommand(participantGetCmd)
	for _, action := range []string{"start", "join", "postpone", "online", "offline", "ready"} {
		participantCmd.AddCommand(participantActionCmd(action, action))
	}
	participantCmd.AddCommand(participantActionCmd("happened", "meeting/happened"))
	participantCmd.AddCommand(participantActionCmd("cancelled", "meeting/cancelled"))
	participantCmd.AddCommand(participantTopicsCmd)
	participantCmd.AddCommand(participantSayCmd)

	participantCmd.PersistentFlags().StringVar(&displayName, "name", "", "Display name used when the participant is created")
}

var displayName string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the durable matchmaking counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/stats")
	},
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the topics participants can pick",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/topics")
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one matchmaking pass over everyone waiting",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/matchmaking/sweep", nil)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all participants, meetings and counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/clear", nil)
	},
}

var contextCmd = &cobra.Command{
	Use:   "context [context-id]",
	Short: "Show the participant registered in a conversation context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/contexts/" + url.PathEscape(args[0]) + "/participant")
	},
}

var participantCmd = &cobra.Command{
	Use:   "participant",
	Short: "Issue commands on behalf of a participant",
}

var participantGetCmd = &cobra.Command{
	Use:   "get [context-id] [person-id]",
	Short: "Show a participant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest(participantPath(args[0], args[1]))
	},
}

func participantActionCmd(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [context-id] [person-id]",
		Short: "Send the " + name + " command",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return performPostRequest(participantPath(args[0], args[1])+"/"+path, map[string]any{"display_name": displayName})
		},
	}
}

var participantTopicsCmd = &cobra.Command{
	Use:   "topics [context-id] [person-id] [topic-id...]",
	Short: "Submit topics and look for a partner",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args)-2)
		for _, arg := range args[2:] {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid topic id %q: %w", arg, err)
			}
			ids = append(ids, id)
		}
		return performPostRequest(participantPath(args[0], args[1])+"/topics", map[string]any{"topic_ids": ids})
	},
}

var participantSayCmd = &cobra.Command{
	Use:   "say [context-id] [person-id] [text...]",
	Short: "Send free text, relayed during a meeting or taken as feedback after it",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(participantPath(args[0], args[1])+"/messages", map[string]any{"text": strings.Join(args[2:], " ")})
	},
}

func participantPath(contextID, personID string) string {
	return "/participants/" + url.PathEscape(contextID) + "/" + url.PathEscape(personID)
}

func withDryRun(endpoint string) string {
	if !dryRun {
		return endpoint
	}
	return endpoint + "?dry_run=true"
}

func performGetRequest(endpoint string) error {
	url := host + withDryRun(endpoint)
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	return printResponse(resp)
}

func performPostRequest(endpoint string, payload any) error {
	url := host + withDryRun(endpoint)
	fmt.Printf("Making request to %s\n", url)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	resp, err := http.Post(url, "application/json", body)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
