package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/mcptools"
	"taskweave/server"
	"taskweave/store"
	"taskweave/workflow"
)

var _ = Describe("Server", func() {
	var (
		runs store.RunStore
		srv  *server.Server
	)

	build := func(answered bool) {
		runs = store.NewMemoryBundle().Runs
		exec := workflow.NewExecutor(echoStrategy{}, newSolvers(answered))
		srv = server.New(workflow.NewRunner(exec, runs, nil), runs, "test", nil)
	}

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() { build(true) })

	It("reports health", func() {
		rec := do(http.MethodGet, "/healthz", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"ok"`))
	})

	It("lists solvers", func() {
		rec := do(http.MethodGet, "/api/v1/solvers", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var list []server.SolverInfo
		Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
		Expect(list).To(HaveLen(2))
		Expect(list[0].Name).To(Equal("shout"))
		Expect(list[0].Version).To(Equal("0.0.1"))
	})

	It("runs a request and stores it", func() {
		rec := do(http.MethodPost, "/api/v1/runs", `{"request":"hello"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp server.CreateRunResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.RunID).NotTo(BeEmpty())
		Expect(resp.Report.Done).To(BeTrue())
		Expect(resp.Report.Result).To(Equal("HELLO"))
		Expect(resp.Report.Steps).To(HaveLen(2))

		rec = do(http.MethodGet, "/api/v1/runs/"+resp.RunID, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var detail server.RunDetail
		Expect(json.Unmarshal(rec.Body.Bytes(), &detail)).To(Succeed())
		Expect(detail.Run.Status).To(Equal(store.StatusCompleted))
		Expect(detail.Steps).To(HaveLen(2))

		rec = do(http.MethodGet, "/api/v1/runs/"+resp.RunID+"/events?limit=1", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var events []store.EventRecord
		Expect(json.Unmarshal(rec.Body.Bytes(), &events)).To(Succeed())
		Expect(events).To(HaveLen(1))
		Expect(events[0].EventType).To(Equal("user"))
	})

	It("rejects an empty request", func() {
		rec := do(http.MethodPost, "/api/v1/runs", `{"request":""}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("pages runs newest first", func() {
		for _, r := range []string{"a", "b", "c"} {
			Expect(do(http.MethodPost, "/api/v1/runs", `{"request":"`+r+`"}`).Code).To(Equal(http.StatusOK))
		}

		rec := do(http.MethodGet, "/api/v1/runs?limit=2", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var page server.ListRunsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &page)).To(Succeed())
		Expect(page.Total).To(Equal(3))
		Expect(page.Runs).To(HaveLen(2))
		Expect(page.Runs[0].Request).To(Equal("c"))

		Expect(do(http.MethodGet, "/api/v1/runs?limit=x", "").Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 404 for unknown runs", func() {
		Expect(do(http.MethodGet, "/api/v1/runs/nope", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/api/v1/runs/nope/events", "").Code).To(Equal(http.StatusNotFound))
	})

	Describe("MCP tools", func() {
		callSolve := func(request string) (string, error) {
			ctx := context.Background()
			box, err := mcptools.InProcess(ctx, "engine", srv.MCP(), nil)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(box.Close)

			list, err := box.Solvers(ctx)
			Expect(err).NotTo(HaveOccurred())
			var solve workflow.Solver
			for _, s := range list {
				if s.Name() == "solve" {
					solve = s
				}
			}
			Expect(solve).NotTo(BeNil())

			step := solve.Solve(ctx, workflow.NewState("outer"), workflow.NewToolTask("t", "t", request, "solve", nil))
			out, _ := step.Output(workflow.OutputResult)
			return out.Text(), step.Err
		}

		It("answers through the solve tool", func() {
			out, err := callSolve("quiet words")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("QUIET WORDS"))

			_, total, _ := runs.ListRuns(0, 0)
			Expect(total).To(Equal(1))
		})

		It("reports rejected answers as tool errors", func() {
			build(false)
			_, err := callSolve("quiet words")
			Expect(err).To(MatchError(ContainSubstring("was rejected: checked")))
		})
	})
})
