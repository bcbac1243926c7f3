// Package mock provides a test double for entity.Recognizer.
//
// MockRecognizer finds mentions of a fixed gazetteer by exact substring
// match, or delegates to RecognizeFunc when it is set:
//
//	rec := mock.NewMockRecognizer(map[string]string{"Google": "ORG"})
//	rec.RecognizeFunc = func(ctx context.Context, text string) ([]entity.Mention, error) {
//	    return nil, errors.New("boom")
//	}
package mock
