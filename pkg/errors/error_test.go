package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeArtifactNotFound, "artifact %s not found", "gecko_1_bitcoin_chart.csv")
	suite.NotNil(err)
	suite.Equal(ErrCodeArtifactNotFound, err.Code)
	suite.Equal("artifact gecko_1_bitcoin_chart.csv not found", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeStoreReadFailed, "failed to read artifact", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeStoreReadFailed, err.Code)
	suite.Equal("failed to read artifact", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeModelFitFailed, cause, "failed to fit model for asset: %s", "bitcoin")
	suite.NotNil(err)
	suite.Equal(ErrCodeModelFitFailed, err.Code)
	suite.Equal("failed to fit model for asset: bitcoin", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeArtifactNotFound, "artifact not found", cause)
	suite.Equal("[200] artifact not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeStoreWriteFailed, "failed to write artifact", cause)
	suite.Equal(cause, err.Unwrap())
	suite.True(errors.Is(err, cause))
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeNoNewData, "no new datasets")
	suite.Equal(ErrCodeNoNewData, GetCode(err))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain error")))
}

func (suite *ErrorTestSuite) TestGetCodeWrapped() {
	err := fmt.Errorf("outer: %w", New(ErrCodeNoNewData, "no new datasets"))
	suite.Equal(ErrCodeNoNewData, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeMalformedIdentifier, "bad identifier")
	suite.True(HasCode(err, ErrCodeMalformedIdentifier))
	suite.False(HasCode(err, ErrCodeArtifactNotFound))
}

func (suite *ErrorTestSuite) TestIsNoNewData() {
	suite.True(IsNoNewData(New(ErrCodeNoNewData, "no new datasets")))
	suite.False(IsNoNewData(New(ErrCodeModelFitFailed, "fit failed")))
	suite.False(IsNoNewData(errors.New("plain error")))
}

func (suite *ErrorTestSuite) TestLengthMismatchError() {
	err := NewLengthMismatchErrorf("market_cap", 100, 99, "market_cap has %d rows, expected %d", 99, 100)
	suite.Equal("market_cap has 99 rows, expected 100", err.Error())
	suite.True(IsLengthMismatchError(err))
	suite.True(IsLengthMismatchError(fmt.Errorf("wrapped: %w", err)))
	suite.False(IsLengthMismatchError(errors.New("plain error")))
}
