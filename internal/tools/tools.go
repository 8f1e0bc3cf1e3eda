// Package tools maps the Jenkins MCP tools onto Jenkins REST API requests.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/simonfxr/jenkins-mcp/internal/jenkins"
	"github.com/simonfxr/jenkins-mcp/internal/metrics"
)

// lastBuild is Jenkins' alias for the most recent build of a job.
const lastBuild = "lastBuild"

// ListAllJobsArgs are the tool arguments for listAllJobs.
type ListAllJobsArgs struct {
	// No arguments
}

// GetJobArgs are the tool arguments for getJob.
type GetJobArgs struct {
	FullPath string `json:"full_path" jsonschema:"Full path of the Jenkins job; nested jobs use 'folder/job/name'"`
}

// GetBuildArgs are the tool arguments for getBuild.
type GetBuildArgs struct {
	FullPath    string `json:"full_path" jsonschema:"Full path of the Jenkins job"`
	BuildNumber *int   `json:"build_number,omitempty" jsonschema:"Build number (default: the last build)"`
}

// TriggerBuildArgs are the tool arguments for triggerBuild.
type TriggerBuildArgs struct {
	FullPath string `json:"full_path" jsonschema:"Full path of the Jenkins job to build"`
}

// GetBuildLogArgs are the tool arguments for getBuildLog.
type GetBuildLogArgs struct {
	FullPath    string `json:"full_path" jsonschema:"Full path of the Jenkins job"`
	BuildNumber *int   `json:"build_number,omitempty" jsonschema:"Build number (default: the last build)"`
	Start       int    `json:"start,omitempty" jsonschema:"Byte offset in the log to start reading from (default: 0)" default:"0"`
}

func (a GetJobArgs) validate() error       { return requirePath(a.FullPath) }
func (a GetBuildArgs) validate() error     { return requirePath(a.FullPath) }
func (a TriggerBuildArgs) validate() error { return requirePath(a.FullPath) }
func (a GetBuildLogArgs) validate() error  { return requirePath(a.FullPath) }

func requirePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("missing required argument: full_path")
	}
	return nil
}

// Handlers carries the collaborators shared by every tool. None of them hold
// per-call state, so a single Handlers serves concurrent calls.
type Handlers struct {
	Resolver jenkins.Resolver
	Gateway  *jenkins.Gateway
	Metrics  *metrics.Recorder
}

// ListAllJobs returns the top-level Jenkins listing.
func (h *Handlers) ListAllJobs(ctx context.Context, jc jenkins.Context, _ ListAllJobsArgs) (any, error) {
	return h.Gateway.Call(ctx, jc, jenkins.Request{Path: "api/json", Method: http.MethodGet})
}

// GetJob returns a single job.
func (h *Handlers) GetJob(ctx context.Context, jc jenkins.Context, args GetJobArgs) (any, error) {
	path := "job/" + jenkins.JobPath(args.FullPath) + "/api/json"
	return h.Gateway.Call(ctx, jc, jenkins.Request{Path: path, Method: http.MethodGet})
}

// GetBuild returns a build, the last one when no build number is given.
func (h *Handlers) GetBuild(ctx context.Context, jc jenkins.Context, args GetBuildArgs) (any, error) {
	path := "job/" + jenkins.JobPath(args.FullPath) + "/" + buildSegment(args.BuildNumber) + "/api/json"
	return h.Gateway.Call(ctx, jc, jenkins.Request{Path: path, Method: http.MethodGet})
}

// TriggerBuild queues a build. The upstream body is ignored.
func (h *Handlers) TriggerBuild(ctx context.Context, jc jenkins.Context, args TriggerBuildArgs) (string, error) {
	path := "job/" + jenkins.JobPath(args.FullPath) + "/build"
	if _, err := h.Gateway.Do(ctx, jc, jenkins.Request{Path: path, Method: http.MethodPost}); err != nil {
		return "", err
	}
	return "Build triggered for job: " + args.FullPath, nil
}

// GetBuildLog returns the progressive log text of a build starting at args.Start.
func (h *Handlers) GetBuildLog(ctx context.Context, jc jenkins.Context, args GetBuildLogArgs) (string, error) {
	path := "job/" + jenkins.JobPath(args.FullPath) + "/" + buildSegment(args.BuildNumber) + "/logText/progressiveText"
	return h.Gateway.CallText(ctx, jc, jenkins.Request{
		Path:   path,
		Method: http.MethodGet,
		Data:   map[string]any{"start": args.Start},
	})
}

func buildSegment(n *int) string {
	if n == nil {
		return lastBuild
	}
	return strconv.Itoa(*n)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	res := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}
	// Structured content must be a JSON object.
	if obj, ok := v.(map[string]any); ok {
		res.StructuredContent = obj
	}
	return res, nil
}

func textResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: s}}}
}

// headersOf returns the inbound HTTP headers of req, nil for transports without them.
func headersOf(req *mcp.CallToolRequest) http.Header {
	if req == nil || req.Extra == nil {
		return nil
	}
	return req.Extra.Header
}
