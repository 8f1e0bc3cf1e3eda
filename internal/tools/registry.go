package tools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"

	"github.com/simonfxr/jenkins-mcp/internal/jenkins"
)

// Definition is one row of the tool table: the MCP tool metadata plus a
// function that registers the typed handler for it.
type Definition struct {
	Name        string
	Description string
	Annotations *mcp.ToolAnnotations
	register    func(s *mcp.Server, t *mcp.Tool, h *Handlers)
}

type validator interface {
	validate() error
}

func boolPtr(b bool) *bool { return &b }

func readOnly() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:    true,
		DestructiveHint: boolPtr(false),
		OpenWorldHint:   boolPtr(true),
	}
}

// Definitions returns the tool table in registration order.
func Definitions() []Definition {
	return []Definition{
		define("listAllJobs", "Get a list of all Jenkins jobs.", readOnly(),
			func(h *Handlers, ctx context.Context, jc jenkins.Context, args ListAllJobsArgs) (*mcp.CallToolResult, error) {
				v, err := h.ListAllJobs(ctx, jc, args)
				if err != nil {
					return nil, err
				}
				return jsonResult(v)
			}),
		define("getJob", "Get a Jenkins job by its full path.", readOnly(),
			func(h *Handlers, ctx context.Context, jc jenkins.Context, args GetJobArgs) (*mcp.CallToolResult, error) {
				v, err := h.GetJob(ctx, jc, args)
				if err != nil {
					return nil, err
				}
				return jsonResult(v)
			}),
		define("getBuild", "Retrieve a specific build or the last build of a Jenkins job.", readOnly(),
			func(h *Handlers, ctx context.Context, jc jenkins.Context, args GetBuildArgs) (*mcp.CallToolResult, error) {
				v, err := h.GetBuild(ctx, jc, args)
				if err != nil {
					return nil, err
				}
				return jsonResult(v)
			}),
		define("triggerBuild", "Trigger a build of a job.",
			&mcp.ToolAnnotations{
				DestructiveHint: boolPtr(false),
				OpenWorldHint:   boolPtr(true),
			},
			func(h *Handlers, ctx context.Context, jc jenkins.Context, args TriggerBuildArgs) (*mcp.CallToolResult, error) {
				msg, err := h.TriggerBuild(ctx, jc, args)
				if err != nil {
					return nil, err
				}
				return textResult(msg), nil
			}),
		define("getBuildLog", "Retrieve log lines for a specific build or the last build of a Jenkins job. Supports pagination via 'start'.", readOnly(),
			func(h *Handlers, ctx context.Context, jc jenkins.Context, args GetBuildLogArgs) (*mcp.CallToolResult, error) {
				text, err := h.GetBuildLog(ctx, jc, args)
				if err != nil {
					return nil, err
				}
				return textResult(text), nil
			}),
	}
}

// Register adds every tool of the table to s.
func Register(s *mcp.Server, h *Handlers) {
	for _, d := range Definitions() {
		d.register(s, &mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			Annotations: d.Annotations,
		}, h)
	}
}

// define builds a table row for a typed handler. The generated MCP handler
// validates the arguments, resolves the Jenkins context from the call's own
// headers and only then runs the tool.
func define[In any](
	name, description string,
	annotations *mcp.ToolAnnotations,
	run func(h *Handlers, ctx context.Context, jc jenkins.Context, args In) (*mcp.CallToolResult, error),
) Definition {
	return Definition{
		Name:        name,
		Description: description,
		Annotations: annotations,
		register: func(s *mcp.Server, t *mcp.Tool, h *Handlers) {
			addTool(s, t, handlerFor(h, name, run))
		},
	}
}

func handlerFor[In any](
	h *Handlers,
	name string,
	run func(h *Handlers, ctx context.Context, jc jenkins.Context, args In) (*mcp.CallToolResult, error),
) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, any, error) {
		res, err := h.invoke(headersOf(req), args, func(jc jenkins.Context) (*mcp.CallToolResult, error) {
			return run(h, ctx, jc, args)
		})
		h.Metrics.ToolCall(name, err)
		if err != nil {
			log.WithField("tool", name).WithError(err).Warn("tool call failed")
			return nil, nil, err
		}
		return res, nil, nil
	}
}

func (h *Handlers) invoke(header http.Header, args any, fn func(jenkins.Context) (*mcp.CallToolResult, error)) (*mcp.CallToolResult, error) {
	if v, ok := args.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	jc, err := h.Resolver.Resolve(header)
	if err != nil {
		return nil, err
	}
	return fn(jc)
}

func addTool[In, Out any](s *mcp.Server, t *mcp.Tool, handler mcp.ToolHandlerFor[In, Out]) {
	t.InputSchema = inputSchemaFor[In]()
	mcp.AddTool(s, t, handler)
}
