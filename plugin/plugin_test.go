package plugin_test

import (
	"context"
	"errors"
	"net"
	"net/rpc"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskweave/plugin"
	"taskweave/workflow"
)

// dial serves impl over an in-memory pipe the same way go-plugin does.
func dial(impl plugin.SolverProvider) *plugin.RPCClient {
	server := rpc.NewServer()
	Expect(server.RegisterName("Plugin", &plugin.RPCServer{Impl: impl})).To(Succeed())

	serverConn, clientConn := net.Pipe()
	go server.ServeConn(serverConn)

	client := rpc.NewClient(clientConn)
	DeferCleanup(client.Close)
	return plugin.NewRPCClient(client)
}

var _ = Describe("RPC transport", func() {
	var (
		impl   *fakeProvider
		client *plugin.RPCClient
	)

	BeforeEach(func() {
		impl = &fakeProvider{}
		client = dial(impl)
	})

	It("forwards settings", func() {
		Expect(client.Configure(map[string]string{"prefix": ">"})).To(Succeed())
		Expect(impl.settings).To(HaveKeyWithValue("prefix", ">"))
	})

	It("lists solvers with their schemas", func() {
		infos, err := client.ListSolvers()
		Expect(err).NotTo(HaveOccurred())
		Expect(infos).To(HaveLen(2))
		Expect(infos[0].Name).To(Equal("shout"))
		Expect(infos[0].Input.Required).To(ConsistOf("text"))
		Expect(infos[0].Input.Properties).To(HaveKey("text"))
	})

	It("calls a solver", func() {
		out, err := client.Solve("shout", "hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("HI"))
		Expect(impl.calls).To(Equal([]string{"shout:hi"}))
	})

	It("returns provider errors", func() {
		_, err := client.Solve("fail", "x")
		Expect(err).To(MatchError(ContainSubstring("fail always fails")))
	})
})

var _ = Describe("ProviderSolvers", func() {
	It("wraps each listed solver", func() {
		list, err := plugin.ProviderSolvers(dial(&fakeProvider{}))
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(2))

		shout := list[0]
		Expect(shout.Name()).To(Equal("shout"))
		Expect(shout.Description()).To(Equal("Upper cases text"))
		Expect(shout.Version()).To(Equal("2.0.0"))
		Expect(shout.InputSchema().Required).To(ConsistOf("text"))
		Expect(list[1].Version()).To(Equal("1.0.0"))
	})

	It("runs steps through the plugin with resolved inputs", func() {
		impl := &fakeProvider{}
		list, err := plugin.ProviderSolvers(dial(impl))
		Expect(err).NotTo(HaveOccurred())

		state := workflow.NewState("shout hello")
		state.Scratchpad[workflow.Key("greet", workflow.OutputResult)] = workflow.Var{Name: "result", Value: "hello"}
		task := workflow.NewToolTask("loud", "loud", "shout it", "shout", []string{"greet"})

		step := list[0].Solve(context.Background(), state, task)
		Expect(step.Success).To(BeTrue())
		out, ok := step.Output(workflow.OutputResult)
		Expect(ok).To(BeTrue())
		Expect(out.Value).To(Equal("HELLO"))
		Expect(impl.calls).To(Equal([]string{"shout:hello"}))
	})

	It("turns plugin errors into failed steps", func() {
		list, err := plugin.ProviderSolvers(dial(&fakeProvider{}))
		Expect(err).NotTo(HaveOccurred())

		step := list[1].Solve(context.Background(), workflow.NewState("r"), workflow.NewToolTask("t", "t", "x", "fail", nil))
		Expect(step.Success).To(BeFalse())
		Expect(step.ErrorText()).To(ContainSubstring("fail always fails"))
	})

	It("reports list failures", func() {
		_, err := plugin.ProviderSolvers(&fakeProvider{listErr: errors.New("nope")})
		Expect(err).To(MatchError(ContainSubstring("list solvers: nope")))
	})
})

var _ = Describe("LoadPlugin", func() {
	It("fails for a missing binary", func() {
		_, err := plugin.LoadPlugin("ghost", "/nonexistent/plugin", nil, nil)
		Expect(err).To(MatchError(ContainSubstring("plugin ghost not found")))
	})
})
