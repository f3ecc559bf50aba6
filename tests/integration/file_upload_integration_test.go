package integration

import (
	"net/http"
	"testing"

	"github.com/sticker-studio/sticker-studio-api/models"
	"github.com/sticker-studio/sticker-studio-api/services"
	"github.com/sticker-studio/sticker-studio-api/tests/testserver"
	"github.com/sticker-studio/sticker-studio-api/tests/testutil"
	"github.com/sticker-studio/sticker-studio-api/utils"
	"github.com/stretchr/testify/suite"
)

type FileUploadIntegrationTestSuite struct {
	suite.Suite
	srv      *testserver.Server
	request  *models.DesignRequest
	question *models.RequestQuestion
	fields   map[string]string
}

func (suite *FileUploadIntegrationTestSuite) SetupTest() {
	t := suite.T()
	testutil.RequireTestEnvironment(t)

	suite.srv = testserver.New(t, testserver.Options{})
	product := testutil.SeedProduct(t, suite.srv.DB, "holographic", 900)
	suite.question = testutil.SeedQuestion(t, suite.srv.DB, product.ID, "Upload your artwork", models.QuestionTypeFileUpload, 1, false)
	suite.request = testutil.SeedDesignRequest(t, suite.srv.DB, product.ID, "artist@example.com", models.StatusDraft)
	suite.fields = map[string]string{
		"designRequestId": suite.request.ID.String(),
		"questionId":      suite.question.ID.String(),
	}
}

func (suite *FileUploadIntegrationTestSuite) versions() []models.AnswerHistoryEntry {
	var rows []models.AnswerHistoryEntry
	suite.Require().NoError(suite.srv.DB.
		Where("design_request_id = ? AND question_id = ?", suite.request.ID, suite.question.ID).
		Order("version").
		Find(&rows).Error)
	return rows
}

func (suite *FileUploadIntegrationTestSuite) TestOversizedFileLeavesNoTrace() {
	t := suite.T()

	w := suite.srv.Upload(t, "poster.png", testutil.PNGOfSize(6*1024*1024), suite.fields)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("FILE_TOO_LARGE", testserver.ErrorCode(t, w))
	suite.Empty(suite.srv.Storage.Objects())
	suite.Empty(suite.versions())
}

func (suite *FileUploadIntegrationTestSuite) TestReuploadAddsAnswerVersion() {
	t := suite.T()

	var first, second services.DesignFileResult
	w := suite.srv.Upload(t, "sketch.png", testutil.PNGOfSize(2048), suite.fields)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	testserver.Decode(t, w, &first)
	suite.True(first.AnswerSaved)
	suite.Equal("image/png", first.ContentType)
	suite.True(suite.srv.Storage.FileExists(first.Key))

	w = suite.srv.Upload(t, "sketch-v2.png", testutil.PNGOfSize(4096), suite.fields)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	testserver.Decode(t, w, &second)
	suite.NotEqual(first.Key, second.Key)

	rows := suite.versions()
	suite.Require().Len(rows, 2)
	suite.Equal(1, rows[0].Version)
	suite.False(rows[0].IsCurrent)
	suite.Equal(2, rows[1].Version)
	suite.True(rows[1].IsCurrent)
	suite.Require().NotNil(rows[1].AnswerFileURL)
	suite.Equal(second.URL, *rows[1].AnswerFileURL)
}

func (suite *FileUploadIntegrationTestSuite) TestStandaloneUploadSkipsAnswer() {
	t := suite.T()

	w := suite.srv.Upload(t, "logo.png", testutil.PNGOfSize(1024), nil)

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var result services.DesignFileResult
	testserver.Decode(t, w, &result)
	suite.False(result.AnswerSaved)
	suite.Len(suite.srv.Storage.Objects(), 1)
	suite.Empty(suite.versions())
}

func (suite *FileUploadIntegrationTestSuite) TestRejectsDisguisedFile() {
	t := suite.T()

	w := suite.srv.Upload(t, "virus.png", []byte("MZ\x90\x00 definitely not a picture"), suite.fields)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.NotEqual("", testserver.ErrorCode(t, w))
	suite.Empty(suite.srv.Storage.Objects())
}

func (suite *FileUploadIntegrationTestSuite) TestPaidRequestRejectsUpload() {
	t := suite.T()
	suite.Require().NoError(suite.srv.DB.Model(suite.request).Update("status", models.StatusPaid).Error)

	w := suite.srv.Upload(t, "late.png", testutil.PNGOfSize(utils.MaxFileSize/8), suite.fields)

	suite.Equal(http.StatusConflict, w.Code)
	suite.Empty(suite.srv.Storage.Objects())
}

func TestFileUploadIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(FileUploadIntegrationTestSuite))
}
