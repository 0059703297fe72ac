package bfasm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeHistory struct {
	entries []*Compilation
}

func (h *fakeHistory) Record(c *Compilation) (uint, error) {
	h.entries = append(h.entries, c)
	c.ID = uint(len(h.entries))
	return c.ID, nil
}

func (h *fakeHistory) Recent(limit int) ([]*Compilation, error) {
	out := []*Compilation{}
	for i := len(h.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.entries[i])
	}
	return out, nil
}

var _ = Describe("Session", func() {
	var (
		mockCtrl      *gomock.Controller
		mockToolchain *MockToolchain
		history       *fakeHistory
		out           *bytes.Buffer
		session       *Session
	)

	newSession := func(input string) {
		log, _ := test.NewNullLogger()
		translator, err := NewTranslator(DefaultTranslatorConfig())
		Expect(err).NotTo(HaveOccurred())
		session = NewSession(translator, mockToolchain, NewScannerConsole(strings.NewReader(input), out), out, log)
		session.History = history
	}

	expectRun := func(output string, code int) {
		mockToolchain.EXPECT().
			Build(gomock.Any(), gomock.Any()).
			Return("/tmp/main", nil)
		mockToolchain.EXPECT().
			Execute(gomock.Any(), "/tmp/main", gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ io.Reader, stdout, _ io.Writer) (int, error) {
				stdout.Write([]byte(output))
				return code, nil
			})
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockToolchain = NewMockToolchain(mockCtrl)
		history = &fakeHistory{}
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should stop on a line starting with q", func() {
		newSession("quit now\n+.\n")

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(history.entries).To(BeEmpty())
	})

	It("should stop on :q and :quit", func() {
		for _, cmd := range []string{":q", ":quit"} {
			newSession(cmd + "\n+.\n")
			Expect(session.Run(context.Background())).To(Succeed())
		}
		Expect(history.entries).To(BeEmpty())
	})

	It("should stop at the end of input", func() {
		expectRun("A", 0)
		newSession("+.\n\n")

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(out.String()).To(Equal(">> A>> >> "))
	})

	It("should not prompt once the context is done", func() {
		newSession("+.\n")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(session.Run(ctx)).To(Succeed())
		Expect(out.String()).To(BeEmpty())
	})

	It("should keep going after a bracket mismatch", func() {
		expectRun("ok", 0)
		newSession("+]\n+.\n")

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("error: Bracket mismatch. Unmatched ']' at line [1] column [2]"))
		Expect(out.String()).To(ContainSubstring("ok"))

		Expect(history.entries).To(HaveLen(2))
		Expect(history.entries[0].Status).To(Equal(StatusRejected))
		Expect(history.entries[0].ErrorKind).To(Equal("BracketMismatch"))
		Expect(history.entries[1].Status).To(Equal(StatusOK))
		Expect(history.entries[1].Mode).To(Equal("repl"))
	})

	It("should record build failures", func() {
		mockToolchain.EXPECT().
			Build(gomock.Any(), gomock.Any()).
			Return("", errors.New("nasm: not found"))
		newSession("+.\n")

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("error: nasm: not found"))
		Expect(history.entries).To(HaveLen(1))
		Expect(history.entries[0].Status).To(Equal(StatusBuildFailed))
		Expect(*history.entries[0].Error).To(Equal("nasm: not found"))
	})

	It("should record run failures", func() {
		mockToolchain.EXPECT().
			Build(gomock.Any(), gomock.Any()).
			Return("/tmp/main", nil)
		mockToolchain.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(-1, context.DeadlineExceeded)
		newSession("+[]\n")

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(history.entries[0].Status).To(Equal(StatusRunFailed))
	})

	It("should print a non-zero exit status", func() {
		expectRun("", 3)
		newSession("+.\n")

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("exit status 3"))
		Expect(*history.entries[0].ExitCode).To(Equal(3))
	})

	It("should toggle the assembly output", func() {
		expectRun("", 0)
		newSession(":asm\n+.\n:asm\n")

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("assembly output on"))
		Expect(out.String()).To(ContainSubstring("global _start"))
		Expect(out.String()).To(ContainSubstring("assembly output off"))
		Expect(session.ShowAssembly).To(BeFalse())
	})

	It("should suggest close meta commands", func() {
		newSession(":hist\n:zzzz\n")

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Unknown command [:hist]. Did you mean [:history]?"))
		Expect(out.String()).To(ContainSubstring("Unknown command [:zzzz]. Try :help"))
	})

	It("should list the history", func() {
		expectRun("", 0)
		newSession("++.\n:history 5\n:history x\n")

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("++."))
		Expect(out.String()).To(ContainSubstring("Invalid history count [x]"))
	})

	It("should report disabled history", func() {
		newSession(":history\n")
		session.History = nil

		Expect(session.Run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("history is disabled"))
	})

	It("should list meta commands on :help", func() {
		newSession(":help\n")

		Expect(session.Run(context.Background())).To(Succeed())
		for _, name := range []string{":quit", ":asm", ":history", ":help"} {
			Expect(out.String()).To(ContainSubstring(name))
		}
	})

	It("should evaluate a single program", func() {
		expectRun("Hello World!\n", 0)
		newSession("")

		code, err := session.Eval(context.Background(), HELLO_WORLD)
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(0))
		Expect(out.String()).To(Equal("Hello World!\n"))
	})

	It("should hand the session stdin to the program", func() {
		stdin := strings.NewReader("x")
		mockToolchain.EXPECT().
			Build(gomock.Any(), gomock.Any()).
			Return("/tmp/main", nil)
		mockToolchain.EXPECT().
			Execute(gomock.Any(), gomock.Any(), stdin, gomock.Any(), gomock.Any()).
			Return(0, nil)
		newSession("")
		session.Stdin = stdin

		_, err := session.Eval(context.Background(), ",.")
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("SuggestCommand", func() {
	It("should match close names", func() {
		Expect(SuggestCommand(":asn")).To(Equal(":asm"))
		Expect(SuggestCommand(":hlep")).To(Equal(":help"))
	})

	It("should not guess for unrelated names", func() {
		Expect(SuggestCommand(":zzzz")).To(BeEmpty())
	})
})
