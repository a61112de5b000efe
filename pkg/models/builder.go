package models

import "github.com/google/uuid"

type ImageActionEventBuilder struct {
	event *ImageActionEvent
}

func NewImageActionEventBuilder() *ImageActionEventBuilder {
	return &ImageActionEventBuilder{
		event: &ImageActionEvent{
			Version:    "0",
			DetailType: DetailTypeECRAction,
			Source:     SourceECR,
			Detail: ImageActionDetail{
				ActionType: ActionTypePush,
				Result:     ActionResultSuccess,
			},
		},
	}
}

func (b *ImageActionEventBuilder) WithID(id string) *ImageActionEventBuilder {
	b.event.ID = id
	return b
}

func (b *ImageActionEventBuilder) WithAccount(account string) *ImageActionEventBuilder {
	b.event.Account = account
	return b
}

func (b *ImageActionEventBuilder) WithRegion(region string) *ImageActionEventBuilder {
	b.event.Region = region
	return b
}

func (b *ImageActionEventBuilder) WithRepository(repository string) *ImageActionEventBuilder {
	b.event.Detail.RepositoryName = repository
	return b
}

func (b *ImageActionEventBuilder) WithTag(tag string) *ImageActionEventBuilder {
	b.event.Detail.ImageTag = tag
	return b
}

func (b *ImageActionEventBuilder) WithRetryCount(n int) *ImageActionEventBuilder {
	b.event.RetryCount = &n
	return b
}

func (b *ImageActionEventBuilder) Build() *ImageActionEvent {
	if b.event.ID == "" {
		b.event.ID = uuid.NewString()
	}
	return b.event
}
