package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/interview"
)

const (
	interviewsCollection = "interviews"
	feedbackCollection   = "feedback"

	listPageSize = 300
)

// FirestoreConfig configures the Firestore-backed store.
type FirestoreConfig struct {
	// ProjectID is the Google Cloud project that owns the database.
	ProjectID string

	// CredentialsFile points at a service account key in JSON form.
	// When empty the client uses Application Default Credentials.
	CredentialsFile string
}

// Firestore is a Store backed by the Firestore REST API, rooted at the
// project's default database.
type Firestore struct {
	service  *firestore.Service
	basePath string
}

// NewFirestore authenticates against Firestore and returns the store.
func NewFirestore(ctx context.Context, cfg FirestoreConfig) (*Firestore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("store: firestore project ID is required")
	}

	client, err := firestoreClient(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	service, err := firestore.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("store: create firestore service: %w", err)
	}

	return &Firestore{
		service:  service,
		basePath: fmt.Sprintf("projects/%s/databases/(default)/documents", cfg.ProjectID),
	}, nil
}

func firestoreClient(ctx context.Context, credentialsFile string) (*http.Client, error) {
	if credentialsFile == "" {
		client, err := google.DefaultClient(ctx, firestore.DatastoreScope)
		if err != nil {
			return nil, fmt.Errorf("store: application default credentials: %w", err)
		}
		return client, nil
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("store: read credentials: %w", err)
	}
	jwtConfig, err := google.JWTConfigFromJSON(data, firestore.DatastoreScope)
	if err != nil {
		return nil, fmt.Errorf("store: parse credentials: %w", err)
	}
	return jwtConfig.Client(ctx), nil
}

// SaveInterview creates or updates an interview. Patch without a mask
// replaces the whole document, creating it when missing.
func (f *Firestore) SaveInterview(ctx context.Context, itv *interview.Interview) error {
	if itv == nil {
		return errors.New("store: nil interview")
	}
	ensureInterviewDefaults(itv)

	doc := &firestore.Document{Fields: interviewFields(itv)}
	_, err := f.service.Projects.Databases.Documents.
		Patch(f.docName(interviewsCollection, itv.ID), doc).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("store: save interview %s: %w", itv.ID, err)
	}
	return nil
}

// GetInterview retrieves an interview by ID.
func (f *Firestore) GetInterview(ctx context.Context, id string) (*interview.Interview, error) {
	doc, err := f.service.Projects.Databases.Documents.
		Get(f.docName(interviewsCollection, id)).
		Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("store: interview %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get interview %s: %w", id, err)
	}
	return interviewFromDoc(doc), nil
}

// ListInterviewsByUser returns one user's interviews, newest first.
func (f *Firestore) ListInterviewsByUser(ctx context.Context, userID string) ([]*interview.Interview, error) {
	interviews, err := f.listInterviews(ctx, func(itv *interview.Interview) bool {
		return itv.UserID == userID
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(interviews)
	return interviews, nil
}

// ListLatestInterviews returns finalized interviews from other users,
// newest first.
func (f *Firestore) ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]*interview.Interview, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}

	interviews, err := f.listInterviews(ctx, func(itv *interview.Interview) bool {
		return itv.Finalized && itv.UserID != excludeUserID
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(interviews)
	if len(interviews) > limit {
		interviews = interviews[:limit]
	}
	return interviews, nil
}

// SaveFeedback creates or updates the feedback for one interview and
// user pair.
func (f *Firestore) SaveFeedback(ctx context.Context, fb *feedback.Feedback) error {
	if fb == nil {
		return errors.New("store: nil feedback")
	}
	if fb.InterviewID == "" || fb.UserID == "" {
		return errors.New("store: feedback requires interview and user IDs")
	}
	ensureFeedbackDefaults(fb)

	name := f.docName(feedbackCollection, feedbackKey(fb.InterviewID, fb.UserID))
	doc := &firestore.Document{Fields: feedbackFields(fb)}
	if _, err := f.service.Projects.Databases.Documents.Patch(name, doc).Context(ctx).Do(); err != nil {
		return fmt.Errorf("store: save feedback for interview %s: %w", fb.InterviewID, err)
	}
	return nil
}

// GetFeedback retrieves the feedback for an interview and user pair.
func (f *Firestore) GetFeedback(ctx context.Context, interviewID, userID string) (*feedback.Feedback, error) {
	doc, err := f.service.Projects.Databases.Documents.
		Get(f.docName(feedbackCollection, feedbackKey(interviewID, userID))).
		Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("store: feedback for interview %s: %w", interviewID, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get feedback for interview %s: %w", interviewID, err)
	}
	return feedbackFromDoc(doc), nil
}

// listInterviews walks every page of the collection. Filtering happens
// client side so the store needs no composite indexes.
func (f *Firestore) listInterviews(ctx context.Context, keep func(*interview.Interview) bool) ([]*interview.Interview, error) {
	var out []*interview.Interview
	pageToken := ""
	for {
		call := f.service.Projects.Databases.Documents.
			List(f.basePath, interviewsCollection).
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("store: list interviews: %w", err)
		}
		for _, doc := range resp.Documents {
			if itv := interviewFromDoc(doc); keep(itv) {
				out = append(out, itv)
			}
		}

		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (f *Firestore) docName(collection, id string) string {
	return f.basePath + "/" + collection + "/" + id
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
