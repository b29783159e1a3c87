package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Publisher is the SNS call used by SNS.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNS publishes alerts to a topic.
type SNS struct {
	client   Publisher
	topicARN string
}

// NewSNS loads the default AWS config for region and creates an SNS notifier.
// Credentials come from the standard AWS environment.
func NewSNS(ctx context.Context, region, topicARN string) (*SNS, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return NewSNSWithClient(sns.NewFromConfig(awsCfg), topicARN), nil
}

// NewSNSWithClient creates an SNS notifier around client.
func NewSNSWithClient(client Publisher, topicARN string) *SNS {
	return &SNS{client: client, topicARN: topicARN}
}

// subjectLimit is the SNS maximum subject length.
const subjectLimit = 100

func (s *SNS) Notify(ctx context.Context, subject string, fields map[string]any) error {
	msg, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return err
	}
	if len(subject) > subjectLimit {
		subject = subject[:subjectLimit]
	}
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(msg)),
	})
	if err != nil {
		return fmt.Errorf("sns publish failed: %w", err)
	}
	return nil
}
