package test

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hibiken/asynq"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"

	"wardrobeapi/models"
	"wardrobeapi/services"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userPk string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func Float64Pointer(f float64) *float64 {
	return &f
}

func BoolPointer(b bool) *bool {
	return &b
}

func FakeUser(db *gorm.DB) *models.UserAccount {
	return FakeUserV2(db, "OurName", "email@example.com")
}

func FakeUserV2(db *gorm.DB, userName string, email string) *models.UserAccount {
	if email == "" {
		email = "email@example.com"
	}
	user := &models.UserAccount{
		Name:      userName,
		Email:     email,
		GoogleID:  "12232",
		Platform:  models.PlatformIOS,
		LastIp:    "123.122.122.122",
		Status:    "FINISHED_AUTH",
		AvatarURL: "pictureurl",
	}
	db.Create(user)
	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU",
		Active:        true,
	}
	db.Save(&tokenDb)
	db.First(user, user.ID)
	return user
}

// FakeClothing stores a processed garment with a single colour covering the
// whole photo. An empty hex leaves it colourless.
func FakeClothing(db *gorm.DB, owner *models.UserAccount, name string, category models.Category, hex string, climates ...models.Climate) *models.Clothing {
	clothing := &models.Clothing{
		Name:             name,
		Category:         category,
		Climates:         climates,
		OwnerID:          owner.ID,
		ImageURL:         services.StrPointer(fmt.Sprintf("clothes/%d/%s.jpg", owner.ID, strings.ReplaceAll(strings.ToLower(name), " ", "-"))),
		ProcessingStatus: models.ProcessingCompleted,
	}
	if hex != "" {
		clothing.Colors = []models.ColorInfo{{Hex: hex, Frequency: 1}}
	}
	db.Create(clothing)
	return clothing
}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	if idToken == "invalid" {
		return nil, fmt.Errorf("idtoken: invalid token")
	}
	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "123googleid", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"name":    "Fake User",
		"picture": "pictureurl",
		"sub":     "123googleid",
	}}, nil
}

type AWSProviderMock struct {
	MockUrl string
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	if awsService.MockUrl != "" {
		return awsService.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/read/%s", fileKey), nil
}

type URLCacheMock struct{}

func (URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	return "https://cdn.example.com/" + objectKey, nil
}

func (URLCacheMock) Forget(ctx context.Context, objectKey string) error {
	return nil
}

type WeatherMock struct {
	mu       sync.Mutex
	Forecast models.WeatherData
	Err      error
	Calls    []models.Coordinates
}

func (w *WeatherMock) GetTodayForecast(ctx context.Context, lat, lon float64) (*models.WeatherData, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Calls = append(w.Calls, models.Coordinates{Latitude: lat, Longitude: lon})
	if w.Err != nil {
		return nil, w.Err
	}
	forecast := w.Forecast
	return &forecast, nil
}

type EnqueuerMock struct {
	mu    sync.Mutex
	Tasks []*asynq.Task
}

func (m *EnqueuerMock) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(m.Tasks)), Type: task.Type(), Payload: task.Payload()}, nil
}

type ClassifierMock struct {
	Detection services.ClothingDetection
	Err       error
	Calls     int
}

func (c *ClassifierMock) Classify(ctx context.Context, image []byte, mimeType string) (*services.ClothingDetection, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	detection := c.Detection
	return &detection, nil
}

type ColorExtractorMock struct {
	Colors []models.ColorInfo
	Err    error
}

func (c ColorExtractorMock) ExtractColors(img image.Image) ([]models.ColorInfo, error) {
	return c.Colors, c.Err
}
