// Package models contains data types and constants for the manual Q&A client.
package models

// API paths, relative to the configured server URL
const (
	PathChat          = "/api/chat/"
	PathModelSearch   = "/api/model-search/"
	PathConversations = "/api/conversations/"
)

// ConversationPath returns the path of a single conversation resource
func ConversationPath(id ConversationID) string {
	return PathConversations + string(id) + "/"
}

// MessagesPath returns the path of a conversation's message collection
func MessagesPath(id ConversationID) string {
	return ConversationPath(id) + "messages/"
}

// Fixed texts shown in the transcript. The server and the web client use Korean.
const (
	GreetingText         = "세탁기/건조기 매뉴얼 Q&A 챗봇이 시작되었습니다."
	ServerDefaultTitle   = "새 대화"
	LocalTitleFormat     = "대화 %s"
	FallbackReplyText    = "응답을 불러오지 못했습니다."
	ServerErrorText      = "서버 오류가 발생했습니다."
	ImageUploadedText    = "이미지를 업로드했습니다."
	ImageResultFormat    = "이미지 분석 결과: %s"
	ImageNoModelText     = "모델 정보를 찾을 수 없습니다."
	ImageErrorText       = "이미지 분석 중 오류가 발생했습니다."
	MovedReplyNoticeText = "응답이 도착했지만 대화방이 바뀌어 해당 방에만 저장되었습니다."
)

// Notices and alerts raised by session operations
const (
	LoadFailedNoticeText     = "서버에서 대화 목록을 불러오지 못해 임시 대화로 시작합니다."
	MessagesLoadFailedText   = "대화 내용을 불러오지 못했습니다."
	CreateFailedAlertText    = "새 대화를 만들지 못했습니다."
	DeleteFailedAlertText    = "대화를 삭제하지 못했습니다."
	ClearFailedAlertText     = "일부 대화를 삭제하지 못했습니다."
	ConversationNotFoundText = "현재 대화를 찾을 수 없습니다."
)

// TitleMaxRunes is the length of a title derived from a sent message
const TitleMaxRunes = 50
