package notice

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/noticelens/noticelens/internal/extraction"
	"github.com/noticelens/noticelens/internal/summarizing"
	"github.com/noticelens/noticelens/internal/user"
)

// envelope is the generic response body shape
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Summary json.RawMessage `json:"summary"`
	User    *user.Profile   `json:"user"`
}

// uploadRequest builds a multipart POST with the notice under fieldName
func uploadRequest(url, fieldName string, content []byte) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(fieldName, "notice.pdf")
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).NotTo(HaveOccurred())

	req, err := http.NewRequest("POST", url, &body)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeEnvelope(resp *http.Response) envelope {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	var env envelope
	Expect(json.Unmarshal(body, &env)).NotTo(HaveOccurred())
	return env
}

var _ = Describe("Server", func() {
	var (
		extractor   *mockExtractor
		summarizer  *mockSummarizer
		store       *mockStore
		server      *Server
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(NewService(extractor, summarizer), user.NewService(store), http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		extractor = &mockExtractor{text: "NOTICE CP14 You owe $100.00"}
		summarizer = newMockSummarizer()
		store = newMockStore()
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("POST /summarize", func() {
		When("the pipeline succeeds", func() {
			It("should return the summary in a success envelope", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/summarize", "notice_pdf", []byte("%PDF-1.4 fake")))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				env := decodeEnvelope(resp)
				Expect(env.Success).To(BeTrue())

				var summary map[string]any
				Expect(json.Unmarshal(env.Summary, &summary)).NotTo(HaveOccurred())
				Expect(summary["noticeFor"]).To(Equal("Jane Doe"))
				Expect(summary["amountDue"]).To(Equal("$100.00"))
			})

			It("should set Content-Type to application/json", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/summarize", "notice_pdf", []byte("%PDF-1.4 fake")))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})
		})

		When("no file field is present", func() {
			It("should return 400 with a missing-file message", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/summarize", "some_other_field", []byte("data")))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				env := decodeEnvelope(resp)
				Expect(env.Success).To(BeFalse())
				Expect(env.Message).To(Equal("No PDF file provided."))
			})

			It("never runs the pipeline", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/summarize", "some_other_field", []byte("data")))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(extractor.calls).To(BeZero())
				Expect(summarizer.calls).To(BeZero())
			})
		})

		When("the body is not multipart", func() {
			It("should return 400", func() {
				resp, err := http.Post(ghttpServer.URL()+"/summarize", "application/json", strings.NewReader(`{}`))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the uploaded file is empty", func() {
			It("should return 400", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/summarize", "notice_pdf", nil))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				env := decodeEnvelope(resp)
				Expect(env.Message).To(Equal("Uploaded file is empty."))
			})
		})

		When("the document is unreadable", func() {
			BeforeEach(func() {
				extractor.err = extraction.ErrUnreadable
				setupServer()
			})

			It("should return 422 with the unreadable message", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/summarize", "notice_pdf", []byte("junk")))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

				env := decodeEnvelope(resp)
				Expect(env.Success).To(BeFalse())
				Expect(env.Message).To(Equal("Could not read text from PDF."))
			})

			It("never invokes the summarizer", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/summarize", "notice_pdf", []byte("junk")))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(summarizer.calls).To(BeZero())
			})
		})

		When("the upstream call fails", func() {
			BeforeEach(func() {
				summarizer.err = summarizing.ErrUpstream
				setupServer()
			})

			It("should return 502 with the summarization-failed message", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/summarize", "notice_pdf", []byte("%PDF-1.4 fake")))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

				env := decodeEnvelope(resp)
				Expect(env.Message).To(Equal("Failed to get summary from AI."))
			})
		})

		When("the upstream response is malformed", func() {
			BeforeEach(func() {
				summarizer.err = summarizing.ErrBadResponse
				setupServer()
			})

			It("should return 502 with a message distinct from the upstream failure", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/summarize", "notice_pdf", []byte("%PDF-1.4 fake")))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

				env := decodeEnvelope(resp)
				Expect(env.Message).To(Equal("AI returned an invalid format."))
			})
		})
	})

	Describe("POST /register", func() {
		registerBody := `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","password":"hunter22","dob":"1990-04-01","mobileNumber":"555-0100"}`

		When("the request is valid", func() {
			It("should create the user and return the profile", func() {
				resp, err := http.Post(ghttpServer.URL()+"/register", "application/json", strings.NewReader(registerBody))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				env := decodeEnvelope(resp)
				Expect(env.Success).To(BeTrue())
				Expect(env.User).NotTo(BeNil())
				Expect(env.User.FirstName).To(Equal("Jane"))
				Expect(env.User.Email).To(Equal("jane@example.com"))
				Expect(env.User.ID).NotTo(BeEmpty())
			})
		})

		When("fields are missing", func() {
			It("should return 400", func() {
				resp, err := http.Post(ghttpServer.URL()+"/register", "application/json", strings.NewReader(`{"email":"jane@example.com"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				env := decodeEnvelope(resp)
				Expect(env.Message).To(Equal("Missing required fields."))
			})
		})

		When("the email is already registered", func() {
			BeforeEach(func() {
				store.users["jane@example.com"] = &user.User{ID: "u1", Email: "jane@example.com"}
			})

			It("should return 409", func() {
				resp, err := http.Post(ghttpServer.URL()+"/register", "application/json", strings.NewReader(registerBody))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusConflict))

				env := decodeEnvelope(resp)
				Expect(env.Message).To(Equal("This email address is already in use."))
			})
		})
	})

	Describe("POST /login", func() {
		BeforeEach(func() {
			hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
			Expect(err).NotTo(HaveOccurred())
			store.users["jane@example.com"] = &user.User{
				ID:           "u1",
				FirstName:    "Jane",
				Email:        "jane@example.com",
				PasswordHash: string(hash),
			}
		})

		When("credentials are valid", func() {
			It("should return the profile", func() {
				resp, err := http.Post(ghttpServer.URL()+"/login", "application/json",
					strings.NewReader(`{"email":"jane@example.com","password":"hunter22"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				env := decodeEnvelope(resp)
				Expect(env.Success).To(BeTrue())
				Expect(env.User.ID).To(Equal("u1"))
			})
		})

		When("the password is wrong", func() {
			It("should return 401", func() {
				resp, err := http.Post(ghttpServer.URL()+"/login", "application/json",
					strings.NewReader(`{"email":"jane@example.com","password":"wrong"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

				env := decodeEnvelope(resp)
				Expect(env.Message).To(Equal("Invalid email or password."))
			})
		})

		When("email or password is missing", func() {
			It("should return 400", func() {
				resp, err := http.Post(ghttpServer.URL()+"/login", "application/json", strings.NewReader(`{"email":"jane@example.com"}`))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("CORS", func() {
		It("answers preflight OPTIONS requests", func() {
			req, err := http.NewRequest("OPTIONS", ghttpServer.URL()+"/summarize", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("sets CORS headers on normal responses", func() {
			resp, err := http.Get(ghttpServer.URL() + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("GET /healthz", func() {
		It("reports ok with database status", func() {
			resp, err := http.Get(ghttpServer.URL() + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]string
			Expect(json.NewDecoder(resp.Body).Decode(&body)).NotTo(HaveOccurred())
			Expect(body["status"]).To(Equal("ok"))
			Expect(body["database"]).To(Equal("ok"))
		})
	})
})
