// cmd/batch-runner/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	awsclients "bedrock-batch-pipeline/internal/common/aws"
	"bedrock-batch-pipeline/internal/common/config"
	"bedrock-batch-pipeline/internal/common/errors"
	"bedrock-batch-pipeline/internal/common/logger"
	"bedrock-batch-pipeline/internal/common/observability"
	"bedrock-batch-pipeline/internal/models"
	formatrequests "bedrock-batch-pipeline/internal/pipeline/batch/format-requests"
	uploadinput "bedrock-batch-pipeline/internal/pipeline/batch/upload-input"
	writerecords "bedrock-batch-pipeline/internal/pipeline/batch/write-records"
	generatedataset "bedrock-batch-pipeline/internal/pipeline/dataset/generate-dataset"
	checkstatus "bedrock-batch-pipeline/internal/pipeline/jobs/check-status"
	fetchresults "bedrock-batch-pipeline/internal/pipeline/jobs/fetch-results"
	notifystatus "bedrock-batch-pipeline/internal/pipeline/jobs/notify-status"
	stopjob "bedrock-batch-pipeline/internal/pipeline/jobs/stop-job"
	submitjob "bedrock-batch-pipeline/internal/pipeline/jobs/submit-job"
	"bedrock-batch-pipeline/pkg/registry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const usage = `Usage: batch-runner <command> [flags]

Commands:
  generate  Generate a synthetic dataset and write the batch input file
  upload    Upload the batch input file (or a directory) to S3
  submit    Submit a batch inference job
  status    Read the current status of a job (single read, no waiting)
  list      List batch inference jobs
  stop      Request that a running job be stopped
  results   Download and parse the output of a finished job
  notify    Send the final status of a job via email/SMS
  run       Full pipeline: generate, upload, submit, then one status read
  help      Show this help message

Use 'batch-runner <command> -h' for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("batch-runner")
	defer obs.Shutdown()

	r := &runner{
		cfg:  cfg,
		log:  log,
		obs:  obs,
		errs: errors.NewErrorHandler(log),
	}

	command := os.Args[1]
	args := os.Args[2:]

	var runErr error
	switch command {
	case "generate":
		runErr = r.runGenerate(args)
	case "upload":
		runErr = r.runUpload(args)
	case "submit":
		runErr = r.runSubmit(args)
	case "status":
		runErr = r.runStatus(args)
	case "list":
		runErr = r.runList(args)
	case "stop":
		runErr = r.runStop(args)
	case "results":
		runErr = r.runResults(args)
	case "notify":
		runErr = r.runNotify(args)
	case "run":
		runErr = r.runPipeline(args)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}

	if runErr != nil {
		r.errs.HandleStageError(command, runErr)
		os.Exit(1)
	}
}

// runner holds everything the subcommands share.
type runner struct {
	cfg  *config.Config
	log  logger.Logger
	obs  *observability.Observability
	errs *errors.ErrorHandler
}

// stageContext returns a context bounded by the stage's configured timeout.
func (r *runner) stageContext(taskType string) (context.Context, context.CancelFunc) {
	stage := config.GetStageConfig(r.cfg, taskType)
	return context.WithTimeout(context.Background(), config.GetDuration(stage.Timeout))
}

// resolveJobArn accepts either a full job ARN or the name of a job recorded
// in the local registry.
func (r *runner) resolveJobArn(value string) (string, error) {
	if value == "" || strings.HasPrefix(value, "arn:") {
		return value, nil
	}

	reg, err := registry.LoadRegistry(r.cfg.Registry.Path)
	if err != nil {
		return "", fmt.Errorf("resolve job %q: %w", value, err)
	}
	record, ok := reg.Find(value)
	if !ok {
		return "", fmt.Errorf("job %q not found in registry %s", value, r.cfg.Registry.Path)
	}
	return record.JobArn, nil
}

// ==========================
// Subcommands
// ==========================

func (r *runner) runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	customers := fs.Int("customers", 0, "number of customers to generate (default from config)")
	recommendations := fs.Int("recommendations", 0, "recommendations per customer (default from config)")
	output := fs.String("output", "", "path of the JSONL batch file (default from config)")
	fs.Parse(args)

	dataset, err := r.generateDataset(*customers, *recommendations)
	if err != nil {
		return err
	}

	formatted, err := r.formatRecords(dataset.Customers, dataset.Recommendations)
	if err != nil {
		return err
	}

	written, err := r.writeBatchFile(formatted.Records, *output)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d records (%d bytes) to %s\n", written.RecordCount, written.BytesWritten, written.Path)
	return nil
}

func (r *runner) runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	path := fs.String("path", "", "file or directory to upload (default from config)")
	bucket := fs.String("bucket", "", "target S3 bucket (default from config)")
	prefix := fs.String("prefix", "", "S3 key prefix (default from config)")
	fs.Parse(args)

	uploadPath := *path
	if uploadPath == "" {
		uploadPath = r.cfg.Batch.InputFile
	}

	result, err := r.uploadBatchFile(uploadPath, *bucket, *prefix)
	if err != nil {
		return err
	}

	if result.Location != "" {
		fmt.Printf("Uploaded %s to %s\n", uploadPath, result.Location)
	} else {
		fmt.Printf("Uploaded %d objects, %d failed\n", result.ObjectsUploaded, result.ObjectsFailed)
	}
	return nil
}

func (r *runner) runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	inputURI := fs.String("input-uri", "", "s3:// URI of the batch input (default from config)")
	outputURI := fs.String("output-uri", "", "s3:// URI for the job output (default from config)")
	model := fs.String("model", "", "model id (default from config)")
	jobName := fs.String("job-name", "", "job name (default: generated from the configured prefix)")
	roleArn := fs.String("role-arn", "", "IAM role ARN the job assumes (default from config)")
	fs.Parse(args)

	result, err := r.submitBatchJob(&submitjob.Input{
		JobName:     *jobName,
		ModelID:     *model,
		RoleArn:     *roleArn,
		InputS3URI:  *inputURI,
		OutputS3URI: *outputURI,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Submitted job %s\n", result.JobName)
	fmt.Printf("  ARN:    %s\n", result.JobArn)
	fmt.Printf("  Status: %s\n", result.Status)
	return nil
}

func (r *runner) runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	job := fs.String("job", "", "job ARN, or a job name recorded in the registry")
	fs.Parse(args)

	jobArn, err := r.resolveJobArn(*job)
	if err != nil {
		return err
	}

	result, err := r.readJobStatus(jobArn)
	if err != nil {
		return err
	}

	printJob(result.Job)
	if result.Done {
		fmt.Println("The job has finished.")
	}
	return nil
}

func (r *runner) runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	status := fs.String("status", "", "filter by status (e.g. InProgress, Completed)")
	max := fs.Int("max", 0, "maximum number of jobs to list (default from config)")
	fs.Parse(args)

	ctx, cancel := r.stageContext(checkstatus.TaskType)
	defer cancel()

	handler, err := r.statusHandler(ctx)
	if err != nil {
		return err
	}

	result, err := handler.ExecuteList(ctx, &checkstatus.ListInput{
		StatusFilter: *status,
		MaxResults:   int32(*max),
	})
	if err != nil {
		return err
	}

	if len(result.Jobs) == 0 {
		fmt.Println("No jobs found.")
		return nil
	}
	for _, job := range result.Jobs {
		fmt.Printf("%-20s %-40s %s\n", job.Status, job.JobName, job.JobArn)
	}
	return nil
}

func (r *runner) runStop(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	job := fs.String("job", "", "job ARN, or a job name recorded in the registry")
	fs.Parse(args)

	jobArn, err := r.resolveJobArn(*job)
	if err != nil {
		return err
	}

	ctx, cancel := r.stageContext(stopjob.TaskType)
	defer cancel()

	bedrockClient, err := awsclients.NewBedrockClient(ctx, r.cfg.AWS.Region)
	if err != nil {
		return err
	}

	handler := stopjob.NewHandler(&stopjob.Config{
		RegistryPath:    r.cfg.Registry.Path,
		RegistryEnabled: r.cfg.Registry.Enabled,
	}, bedrockClient.Client, r.log)

	result, err := handler.Execute(ctx, &stopjob.Input{JobArn: jobArn})
	if err != nil {
		return err
	}

	fmt.Printf("Stop requested for %s\n", result.JobArn)
	fmt.Println("Run 'batch-runner status -job <arn>' to confirm the job stopped.")
	return nil
}

func (r *runner) runResults(args []string) error {
	fs := flag.NewFlagSet("results", flag.ExitOnError)
	job := fs.String("job", "", "job ARN, or a job name recorded in the registry")
	outputDir := fs.String("output-dir", "", "directory for local copies of the output files")
	fs.Parse(args)

	jobArn, err := r.resolveJobArn(*job)
	if err != nil {
		return err
	}

	ctx, cancel := r.stageContext(fetchresults.TaskType)
	defer cancel()

	s3Client, err := awsclients.NewS3Client(ctx, r.cfg.AWS.Region)
	if err != nil {
		return err
	}

	handler := fetchresults.NewHandler(&fetchresults.Config{
		Bucket: r.cfg.AWS.S3.Bucket,
		Prefix: r.cfg.AWS.S3.OutputPrefix,
	}, s3Client.Client, r.log)

	result, err := handler.Execute(ctx, &fetchresults.Input{JobArn: jobArn, OutputDir: *outputDir})
	if err != nil {
		return err
	}

	fmt.Printf("Fetched %d results, %d with errors\n", result.ResultCount, result.ErrorCount)
	if result.SavedTo != "" {
		fmt.Printf("Saved output files to %s\n", result.SavedTo)
	}
	return nil
}

func (r *runner) runNotify(args []string) error {
	fs := flag.NewFlagSet("notify", flag.ExitOnError)
	job := fs.String("job", "", "job ARN, or a job name recorded in the registry")
	fs.Parse(args)

	jobArn, err := r.resolveJobArn(*job)
	if err != nil {
		return err
	}

	status, err := r.readJobStatus(jobArn)
	if err != nil {
		return err
	}

	handler, err := notifystatus.NewHandler(&notifystatus.Config{
		EmailEnabled: r.cfg.Notifications.Email.Enabled,
		FromEmail:    r.cfg.Notifications.Email.FromEmail,
		ToEmails:     r.cfg.Notifications.Email.To,
		SMSEnabled:   r.cfg.Notifications.SMS.Enabled,
		TopicArn:     r.cfg.Notifications.SMS.TopicArn,
		AWSRegion:    r.cfg.AWS.Region,
	}, r.log)
	if err != nil {
		return err
	}

	ctx, cancel := r.stageContext(notifystatus.TaskType)
	defer cancel()

	result, err := handler.Execute(ctx, &notifystatus.Input{Job: status.Job})
	if err != nil {
		return err
	}

	switch result.Status {
	case notifystatus.StatusSkipped:
		fmt.Printf("Job %s is still %s; no notification sent.\n", status.Job.JobName, status.Job.Status)
	case notifystatus.StatusDisabled:
		fmt.Println("No notification channels are enabled.")
	default:
		fmt.Printf("Notification sent via %s\n", strings.Join(result.Channels, ", "))
	}
	return nil
}

// runPipeline executes the whole submission path. A disabled stage acts as a
// cut point: the pipeline runs up to it and stops there, so local dry runs
// never touch AWS.
func (r *runner) runPipeline(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	customers := fs.Int("customers", 0, "number of customers to generate (default from config)")
	recommendations := fs.Int("recommendations", 0, "recommendations per customer (default from config)")
	fs.Parse(args)

	if r.cfg.Metrics.Enabled {
		go r.serveMetrics()
	}
	pipelineStart := time.Now()

	if !r.stageEnabled(generatedataset.TaskType) {
		return nil
	}
	dataset, err := r.generateDataset(*customers, *recommendations)
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d customers with %d recommendations each\n",
		dataset.CustomerCount, dataset.RecommendationCount)

	if !r.stageEnabled(formatrequests.TaskType) {
		return nil
	}
	formatted, err := r.formatRecords(dataset.Customers, dataset.Recommendations)
	if err != nil {
		return err
	}

	if !r.stageEnabled(writerecords.TaskType) {
		return nil
	}
	written, err := r.writeBatchFile(formatted.Records, "")
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d records to %s\n", written.RecordCount, written.Path)

	if !r.stageEnabled(uploadinput.TaskType) {
		return nil
	}
	uploaded, err := r.uploadBatchFile(written.Path, "", "")
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded batch input to %s\n", uploaded.Location)

	if !r.stageEnabled(submitjob.TaskType) {
		return nil
	}
	submitted, err := r.submitBatchJob(&submitjob.Input{
		InputS3URI:  uploaded.Location,
		RecordCount: written.RecordCount,
	})
	if err != nil {
		return err
	}

	status, err := r.readJobStatus(submitted.JobArn)
	if err != nil {
		return err
	}

	r.obs.RecordRecordsProcessed(context.Background(), written.RecordCount, "pipeline")
	r.obs.RecordStageDuration(context.Background(), time.Since(pipelineStart), "pipeline")

	fmt.Printf("Submitted job %s\n", submitted.JobName)
	fmt.Printf("  ARN:    %s\n", submitted.JobArn)
	fmt.Printf("  Status: %s\n", status.Job.Status)
	fmt.Printf("Poll with 'batch-runner status -job %s' until it finishes.\n", submitted.JobArn)
	return nil
}

// stageEnabled reports whether a pipeline stage should run; a disabled stage
// is logged as the stopping point.
func (r *runner) stageEnabled(taskType string) bool {
	if config.IsStageEnabled(r.cfg, taskType) {
		return true
	}
	r.log.Info("stage disabled, pipeline stops here", map[string]interface{}{"stage": taskType})
	return false
}

// ==========================
// Stage wiring
// ==========================

func (r *runner) generateDataset(customers, recommendations int) (*generatedataset.Output, error) {
	handler := generatedataset.NewHandler(&generatedataset.Config{
		CustomerCount:       r.cfg.Dataset.CustomerCount,
		RecommendationCount: r.cfg.Dataset.RecommendationCount,
	}, r.log)

	ctx, cancel := r.stageContext(generatedataset.TaskType)
	defer cancel()

	return handler.Execute(ctx, &generatedataset.Input{
		CustomerCount:       customers,
		RecommendationCount: recommendations,
	})
}

func (r *runner) formatRecords(customers []models.Customer, recommendations []models.ProductRecommendation) (*formatrequests.Output, error) {
	handler := formatrequests.NewHandler(&formatrequests.Config{
		AnthropicVersion: r.cfg.Inference.AnthropicVersion,
		MaxTokens:        r.cfg.Inference.MaxTokens,
		Temperature:      r.cfg.Inference.Temperature,
		TopP:             r.cfg.Inference.TopP,
		TopK:             r.cfg.Inference.TopK,
	}, r.log)

	ctx, cancel := r.stageContext(formatrequests.TaskType)
	defer cancel()

	return handler.Execute(ctx, &formatrequests.Input{
		Customers:       customers,
		Recommendations: recommendations,
	})
}

func (r *runner) writeBatchFile(records []models.BatchRecord, path string) (*writerecords.Output, error) {
	handler, err := writerecords.NewHandler(&writerecords.Config{
		OutputPath: r.cfg.Batch.InputFile,
	}, r.log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.stageContext(writerecords.TaskType)
	defer cancel()

	return handler.Execute(ctx, &writerecords.Input{Records: records, Path: path})
}

func (r *runner) uploadBatchFile(path, bucket, prefix string) (*uploadinput.Output, error) {
	ctx, cancel := r.stageContext(uploadinput.TaskType)
	defer cancel()

	s3Client, err := awsclients.NewS3Client(ctx, r.cfg.AWS.Region)
	if err != nil {
		return nil, err
	}

	handler := uploadinput.NewHandler(&uploadinput.Config{
		Bucket: r.cfg.AWS.S3.Bucket,
		Prefix: r.cfg.AWS.S3.InputPrefix,
	}, s3Client.Uploader, r.log)

	return handler.Execute(ctx, &uploadinput.Input{Path: path, Bucket: bucket, Prefix: prefix})
}

func (r *runner) submitBatchJob(input *submitjob.Input) (*submitjob.Output, error) {
	ctx, cancel := r.stageContext(submitjob.TaskType)
	defer cancel()

	bedrockClient, err := awsclients.NewBedrockClient(ctx, r.cfg.AWS.Region)
	if err != nil {
		return nil, err
	}

	handler := submitjob.NewHandler(&submitjob.Config{
		ModelID:         r.cfg.Inference.ModelID,
		RoleArn:         r.cfg.AWS.Bedrock.RoleArn,
		JobNamePrefix:   r.cfg.Batch.JobNamePrefix,
		InputS3URI:      r.cfg.AWS.InputS3URI(),
		OutputS3URI:     r.cfg.AWS.OutputS3URI(),
		TimeoutHours:    int32(r.cfg.AWS.Bedrock.TimeoutHours),
		RegistryPath:    r.cfg.Registry.Path,
		RegistryEnabled: r.cfg.Registry.Enabled,
	}, bedrockClient.Client, r.log)

	return handler.Execute(ctx, input)
}

func (r *runner) statusHandler(ctx context.Context) (*checkstatus.Handler, error) {
	bedrockClient, err := awsclients.NewBedrockClient(ctx, r.cfg.AWS.Region)
	if err != nil {
		return nil, err
	}

	cfg := checkstatus.LoadConfig()
	cfg.RegistryPath = r.cfg.Registry.Path
	cfg.RegistryEnabled = r.cfg.Registry.Enabled
	return checkstatus.NewHandler(cfg, bedrockClient.Client, r.log), nil
}

func (r *runner) readJobStatus(jobArn string) (*checkstatus.Output, error) {
	ctx, cancel := r.stageContext(checkstatus.TaskType)
	defer cancel()

	handler, err := r.statusHandler(ctx)
	if err != nil {
		return nil, err
	}
	return handler.Execute(ctx, &checkstatus.Input{JobArn: jobArn})
}

// serveMetrics exposes prometheus metrics and a health endpoint while the
// pipeline runs.
func (r *runner) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.log.Info("metrics server starting", map[string]interface{}{"address": r.cfg.Metrics.Address})
	if err := http.ListenAndServe(r.cfg.Metrics.Address, mux); err != nil {
		r.log.WithError(err).Warn("metrics server stopped", nil)
	}
}

func printJob(job models.JobInfo) {
	fmt.Printf("Job:       %s\n", job.JobName)
	fmt.Printf("ARN:       %s\n", job.JobArn)
	fmt.Printf("Model:     %s\n", job.ModelID)
	fmt.Printf("Status:    %s\n", job.Status)
	if job.Message != "" {
		fmt.Printf("Message:   %s\n", job.Message)
	}
	if job.SubmittedAt != "" {
		fmt.Printf("Submitted: %s\n", job.SubmittedAt)
	}
	if job.EndedAt != "" {
		fmt.Printf("Ended:     %s\n", job.EndedAt)
	}
	if job.OutputURI != "" {
		fmt.Printf("Output:    %s\n", job.OutputURI)
	}
}
