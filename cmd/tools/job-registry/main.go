// cmd/tools/job-registry/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"bedrock-batch-pipeline/pkg/registry"
)

const defaultRegistryPath = "data/job-registry.json"

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	getCmd := flag.NewFlagSet("get", flag.ExitOnError)
	removeCmd := flag.NewFlagSet("remove", flag.ExitOnError)
	pruneCmd := flag.NewFlagSet("prune", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	// List command flags
	listPath := listCmd.String("path", defaultRegistryPath, "Path to registry file")
	listStatus := listCmd.String("status", "", "Only show jobs with this status (e.g. Completed)")

	// Get command flags
	getPath := getCmd.String("path", defaultRegistryPath, "Path to registry file")
	getJob := getCmd.String("job", "", "Job ARN or job name")

	// Remove command flags
	removePath := removeCmd.String("path", defaultRegistryPath, "Path to registry file")
	removeJob := removeCmd.String("job", "", "Job ARN or job name")

	// Prune command flags
	prunePath := pruneCmd.String("path", defaultRegistryPath, "Path to registry file")
	pruneOlderThan := pruneCmd.String("older-than", "720h", "Drop jobs last updated before now minus this duration")
	pruneTerminalOnly := pruneCmd.Bool("terminal-only", true, "Only drop jobs in a terminal status")

	// Validate command flags
	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listJobs(*listPath, *listStatus); err != nil {
			fmt.Printf("Error listing jobs: %v\n", err)
			os.Exit(1)
		}

	case "get":
		getCmd.Parse(os.Args[2:])
		if *getJob == "" {
			fmt.Println("Error: -job is required for get.")
			getCmd.Usage()
			os.Exit(1)
		}
		if err := showJob(*getPath, *getJob); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

	case "remove":
		removeCmd.Parse(os.Args[2:])
		if *removeJob == "" {
			fmt.Println("Error: -job is required for remove.")
			removeCmd.Usage()
			os.Exit(1)
		}
		if err := removeJobRecord(*removePath, *removeJob); err != nil {
			fmt.Printf("Error removing job: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed job: %s\n", *removeJob)

	case "prune":
		pruneCmd.Parse(os.Args[2:])
		if err := pruneJobs(*prunePath, *pruneOlderThan, *pruneTerminalOnly); err != nil {
			fmt.Printf("Error pruning registry: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(*validatePath); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "help":
		fallthrough
	default:
		help()
	}
}

func listJobs(path, status string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	shown := 0
	for _, job := range reg.Jobs {
		if status != "" && job.Status != status {
			continue
		}
		fmt.Printf("%-20s %-35s %s\n", job.Status, job.JobName, job.JobArn)
		shown++
	}

	if shown == 0 {
		if status != "" {
			fmt.Printf("No jobs with status %s.\n", status)
		} else {
			fmt.Println("Registry is empty.")
		}
	}
	return nil
}

func showJob(path, job string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	record, ok := reg.Find(job)
	if !ok {
		return fmt.Errorf("job %q not found in %s", job, path)
	}

	fmt.Printf("Name:      %s\n", record.JobName)
	fmt.Printf("ARN:       %s\n", record.JobArn)
	fmt.Printf("Model:     %s\n", record.ModelID)
	fmt.Printf("Status:    %s\n", record.Status)
	if record.Message != "" {
		fmt.Printf("Message:   %s\n", record.Message)
	}
	if record.InputURI != "" {
		fmt.Printf("Input:     %s\n", record.InputURI)
	}
	if record.OutputURI != "" {
		fmt.Printf("Output:    %s\n", record.OutputURI)
	}
	if record.RecordCount > 0 {
		fmt.Printf("Records:   %d\n", record.RecordCount)
	}
	if record.SubmittedAt != "" {
		fmt.Printf("Submitted: %s\n", record.SubmittedAt)
	}
	if record.UpdatedAt != "" {
		fmt.Printf("Updated:   %s\n", record.UpdatedAt)
	}
	return nil
}

func removeJobRecord(path, job string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if !reg.Remove(job) {
		return fmt.Errorf("job %q not found in %s", job, path)
	}
	return registry.SaveRegistry(path, reg)
}

func pruneJobs(path, olderThan string, terminalOnly bool) error {
	age, err := time.ParseDuration(olderThan)
	if err != nil {
		return fmt.Errorf("invalid -older-than value: %w", err)
	}

	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	pruned := reg.Prune(time.Now().Add(-age), terminalOnly)
	if pruned == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}

	if err := registry.SaveRegistry(path, reg); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	fmt.Printf("Pruned %d jobs, %d remain.\n", pruned, len(reg.Jobs))
	return nil
}

func validateRegistry(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if err := reg.Validate(); err != nil {
		return err
	}

	fmt.Printf("Found %d jobs.\n", len(reg.Jobs))
	return nil
}

func help() {
	fmt.Println(`
Usage: job-registry <command> [flags]

Commands:
  list     List jobs recorded in the registry
  get      Show the full record of one job
  remove   Remove a job from the registry
  prune    Drop old jobs from the registry
  validate Validate the registry file
  help     Show this help message

Examples:
  job-registry list -status Completed
  job-registry get -job batch-inference-20260214-093045
  job-registry remove -job arn:aws:bedrock:us-east-1:123456789012:model-invocation-job/abc123
  job-registry prune -older-than 720h -terminal-only
  job-registry validate -path data/job-registry.json

Use 'job-registry <command> -h' for more information about a command.
`)
}
