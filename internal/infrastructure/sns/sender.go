package sns

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/worklink-api/internal/config"
)

// Publisher sends SMS messages and fans broadcasts out to an SNS topic.
type Publisher interface {
	SendSMS(ctx context.Context, to, message string) error
	PublishBroadcast(ctx context.Context, audience, subject, message string) error
}

type publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(cfg *config.Config) (Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSBroadcastTopicARN}, nil
}

func (p *publisher) SendSMS(ctx context.Context, to, message string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &to,
		Message:     &message,
	})
	return err
}

// PublishBroadcast publishes to the broadcast topic with the target audience
// as a message attribute, so subscribers can filter by role partition.
// No-op when no topic is configured.
func (p *publisher) PublishBroadcast(ctx context.Context, audience, subject, message string) error {
	if p.topicARN == "" {
		return nil
	}
	dataType := "String"
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Subject:  &subject,
		Message:  &message,
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"target_audience": {DataType: &dataType, StringValue: &audience},
		},
	})
	return err
}
