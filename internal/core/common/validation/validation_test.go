package validation_test

import (
	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/common/validation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("ValidationBuilder", func() {
	It("passes valid input", func() {
		v := validation.NewValidator()
		v.Field("name", "Luz").Required().MaxLength(10)
		v.Field("importe", decimal.NewFromInt(10)).NonNegative(errors.ErrCodeInvalidAmount)
		v.Field("color", "#aabbcc").HexColor()
		Expect(v.Validate()).To(BeNil())
	})

	It("collects every failing field", func() {
		v := validation.NewValidator()
		v.Field("name", " ").Required()
		v.Field("importe", decimal.NewFromInt(-1)).NonNegative(errors.ErrCodeInvalidAmount)
		v.Field("currency", "EUR").OneOf([]string{"ARS", "USD"}, errors.ErrCodeInvalidCurrency)

		err := v.Validate()
		Expect(err).NotTo(BeNil())
		Expect(err.Code).To(Equal(errors.ErrCodeValidationFailed))

		details, ok := err.Details.(errors.ValidationErrors)
		Expect(ok).To(BeTrue())
		Expect(details.Errors).To(HaveLen(3))
		Expect(details.Errors[1].Code).To(Equal(string(errors.ErrCodeInvalidAmount)))
		Expect(details.Errors[2].Field).To(Equal("currency"))
	})

	DescribeTable("ValidateBucket",
		func(month, year int, ok bool) {
			err := validation.ValidateBucket(month, year)
			if ok {
				Expect(err).To(BeNil())
			} else {
				Expect(err).NotTo(BeNil())
			}
		},
		Entry("january", 1, 2025, true),
		Entry("december", 12, 2024, true),
		Entry("month zero", 0, 2025, false),
		Entry("month thirteen", 13, 2025, false),
		Entry("year zero", 5, 0, false),
	)

	DescribeTable("MaxPlaces",
		func(value string, ok bool) {
			v := validation.NewValidator()
			v.Field("importe", decimal.RequireFromString(value)).MaxPlaces(2, errors.ErrCodeInvalidAmount)
			if ok {
				Expect(v.Validate()).To(BeNil())
			} else {
				err := v.Validate()
				Expect(err).NotTo(BeNil())
				details := err.Details.(errors.ValidationErrors)
				Expect(details.Errors[0].Code).To(Equal(string(errors.ErrCodeInvalidAmount)))
			}
		},
		Entry("integer", "10", true),
		Entry("cents", "10.25", true),
		Entry("trailing zeros", "10.500", true),
		Entry("sub-cent", "10.005", false),
	)

	It("recognises hex colors", func() {
		Expect(validation.IsHexColor("#10B981")).To(BeTrue())
		Expect(validation.IsHexColor("10B981")).To(BeFalse())
		Expect(validation.IsHexColor("#fff")).To(BeFalse())
	})
})
