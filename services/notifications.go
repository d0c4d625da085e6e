package services

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"

	"wardrobeapi/models"
)

const androidChannelID = "wardrobe-suggestions"

func stringMapToInterfaceMap(stringMap map[string]string) map[string]interface{} {
	interfaceMap := make(map[string]interface{})
	for key, value := range stringMap {
		interfaceMap[key] = value
	}
	return interfaceMap
}

func buildPushMessage(token models.UserPushToken, title string, body string, customData map[string]string) *messaging.Message {
	var iosCustomData map[string]interface{}
	if customData != nil {
		iosCustomData = stringMapToInterfaceMap(customData)
	}
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
				CustomData: iosCustomData,
			},
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				ChannelID: androidChannelID,
			},
			Data: customData,
		},
		Webpush: &messaging.WebpushConfig{
			Data: customData,
		},
		Data:  customData,
		Token: token.Token,
	}
}

// SendNotification pushes to every active token of the user. Tokens that FCM
// reports as unregistered are deactivated.
func SendNotification(fbApp *firebase.App, db *gorm.DB, userId uint, title string, body string, customData map[string]string) {
	if fbApp == nil {
		log.Printf("[Push: %v] Firebase is not configured, skipping %q\n", userId, title)
		return
	}
	client, err := fbApp.Messaging(context.Background())
	if err != nil {
		fmt.Println("Error initing FB client", err)
		fmt.Println("Abort push: ", title)
		return
	}

	var tokens []models.UserPushToken
	result := db.Model(models.UserPushToken{}).Where(
		"user_account_id = ? and active = true", userId,
	).Find(&tokens)
	if result.Error != nil {
		fmt.Println("Error loading push tokens", result.Error)
		sentry.CaptureException(result.Error)
		return
	}
	if len(tokens) == 0 {
		log.Printf("[Push: %v] No active tokens\n", userId)
		return
	}

	messages := make([]*messaging.Message, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, buildPushMessage(token, title, body, customData))
	}

	br, err := client.SendEach(context.Background(), messages)
	if err != nil {
		fmt.Println("Error sending push", err)
		sentry.CaptureException(err)
		return
	}
	fmt.Println("Push Fails: ", br.FailureCount)
	for i, response := range br.Responses {
		if response == nil || response.Success {
			continue
		}
		fmt.Println(response.Error, tokens[i].ID)
		if messaging.IsUnregistered(response.Error) {
			db.Model(&models.UserPushToken{}).Where("id = ?", tokens[i].ID).Update("active", false)
		}
	}
}
