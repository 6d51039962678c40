package logger

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("format selection", func() {
	It("lets the format override the environment", func() {
		Expect(useJSON("development", "json")).To(BeTrue())
		Expect(useJSON("production", "text")).To(BeFalse())
		Expect(useJSON("production", "auto")).To(BeTrue())
		Expect(useJSON("development", "")).To(BeFalse())
	})
})
